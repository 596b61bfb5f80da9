package rest

import (
	"net/http"

	"yesod/internal/service"
)

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())

	status := http.StatusOK
	switch report.Status {
	case service.HealthDegraded:
		status = http.StatusPartialContent
	case service.HealthCritical:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-store")
	JSON(w, status, report)
}
