package api

import (
	"net/http"

	service "github.com/okian/engage/internal/app"
)

type memberRequest struct {
	MemberID string `json:"memberId"`
}

// handleRecordPractice handles POST /api/streaks.
func (s *Server) handleRecordPractice(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_practice"
	var req memberRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.RecordPractice(r.Context(), service.PracticeRequest{MemberID: req.MemberID})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStreaks handles GET /api/streaks?memberId=.
func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	const op = "api.streaks"
	view, err := s.deps.Streaks(r.Context(), memberParam(r))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
