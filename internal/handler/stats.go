package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/calc-tracker/internal/auth"
	"github.com/sakif/calc-tracker/internal/service"
)

// StatsHandler serves the read-only summary over the user's history.
type StatsHandler struct {
	svc    *service.StatsService
	logger *slog.Logger
}

func NewStatsHandler(svc *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

// HandleStats returns the aggregate summary for the authenticated user.
//
// HTTP: GET /api/stats
//
// A user with no history gets the empty summary (total 0, null timestamp),
// not a 404 — having performed zero calculations is a perfectly good answer.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	summary, err := h.svc.ForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
