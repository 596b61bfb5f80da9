package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"yesod/internal/service"
	"yesod/internal/transport/auth"
)

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exportList.GetExports(r.Context(), userID)
	if err != nil {
		h.logger.Error("list exports", zap.Int64("user_id", userID), zap.Error(err))
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	// ids are handed out with their prefix; accept both forms
	exportID := exportIDParam
	if !strings.HasPrefix(exportID, h.exportPrefix) {
		exportID = h.exportPrefix + exportID
	}

	export, err := h.exportList.GetExport(r.Context(), exportID, userID)
	if errors.Is(err, service.ErrExportNotFound) {
		ErrorNotFound(w, "export not found")
		return
	}
	if err != nil {
		h.logger.Error("get export", zap.String("export_id", exportID), zap.Error(err))
		ErrorInternal(w, "failed to get export")
		return
	}

	Success(w, "", export)
}
