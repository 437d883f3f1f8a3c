package api

import (
	"net/http"

	service "github.com/okian/engage/internal/app"
)

// handleRecordActivity handles POST /api/activity-sessions.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_activity"
	var req memberRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	counts, err := s.deps.RecordActivity(r.Context(), service.ActivityRequest{MemberID: req.MemberID})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleActivity handles GET /api/activity-sessions?memberId=.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.activity"
	counts, err := s.deps.ActivityCounts(r.Context(), memberParam(r))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
