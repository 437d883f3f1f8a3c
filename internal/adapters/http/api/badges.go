package api

import (
	"net/http"

	"github.com/okian/engage/internal/domain/badge"
)

type badgesResponse struct {
	Badges badge.Catalog `json:"badges"`
}

// handleBadges handles GET /api/badges.
func (s *Server) handleBadges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, badgesResponse{Badges: s.deps.Catalog()})
}
