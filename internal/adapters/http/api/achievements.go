package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/engage/internal/app"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/ranking"
	"github.com/okian/engage/pkg/metrics"
)

// sessionRequest mirrors the OpenAPI schema for POST /api/achievements.
// Points stays raw so that strings and garbage can be coerced instead of
// rejected.
type sessionRequest struct {
	EventID     string          `json:"eventId"`
	MemberID    string          `json:"memberId"`
	UserName    string          `json:"userName"`
	UserPicture string          `json:"userPicture"`
	TeamID      string          `json:"teamId"`
	Points      json.RawMessage `json:"points"`
}

func (r sessionRequest) toService() service.RecordSessionRequest {
	points, ok := model.ParsePoints(r.Points)
	if !ok {
		metrics.RecordPointsCoerced()
	}
	return service.RecordSessionRequest{
		EventID:     r.EventID,
		MemberID:    r.MemberID,
		UserName:    r.UserName,
		UserPicture: r.UserPicture,
		TeamID:      r.TeamID,
		Points:      points,
	}
}

func memberParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("memberId"))
}

// handleRecordSession handles POST /api/achievements.
func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_session"
	var req sessionRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.RecordSession(r.Context(), req.toService())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAchievements handles GET /api/achievements?memberId=.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	const op = "api.achievements"
	view, err := s.deps.Achievements(r.Context(), memberParam(r))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleLeague handles GET /api/league?memberId=.
func (s *Server) handleLeague(w http.ResponseWriter, r *http.Request) {
	const op = "api.league"
	view, err := s.deps.League(r.Context(), memberParam(r))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type rankingsResponse struct {
	Scope    ranking.Scope        `json:"scope"`
	Rankings []model.RankingEntry `json:"rankings"`
}

// handleRankings handles GET /api/rankings?scope=&memberId=&teamId=&limit=.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.rankings"
	q := r.URL.Query()
	raw := q.Get("scope")
	if raw == "" {
		raw = string(ranking.ScopeWeekly)
	}
	scope, err := ranking.ParseScope(raw)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, WrapKind(op, ErrBadRequest, strconv.ErrSyntax))
			return
		}
		limit = n
	}
	out, err := s.deps.Rankings(r.Context(), service.RankingQueryRequest{
		Scope:    scope,
		ViewerID: memberParam(r),
		TeamID:   strings.TrimSpace(q.Get("teamId")),
		Limit:    limit,
	})
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rankingsResponse{Scope: scope, Rankings: out})
}
