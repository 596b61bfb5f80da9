package rest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"yesod/internal/transport/auth"
)

func (h *Handler) exportNotices(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateNoticesExportRequest(r)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	exportID, err := h.exporter.StartNoticesExport(r.Context(), req.Fields, req.Filter, userID)
	if err != nil {
		h.logger.Error("start notices export", zap.Int64("user_id", userID), zap.Error(err))
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "Export en cours de préparation", map[string]interface{}{
		"export_id": exportID,
	})
}
