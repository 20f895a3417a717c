// internal/server/handlers/dashboard.go

package handlers

import (
	"log/slog"
	"net/http"

	"peerhive/internal/domain/post"
)

// DashboardHandler serves the admin dashboard
type DashboardHandler struct {
	feed       post.Service
	adminEmail string
	log        *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(feed post.Service, adminEmail string, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		feed:       feed,
		adminEmail: adminEmail,
		log:        logger.With("component", "dashboard_handler"),
	}
}

// GetDashboard returns the aggregated view model
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r, h.adminEmail) == nil {
		return
	}

	vm, err := h.feed.Dashboard(r.Context())
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, vm)
}
