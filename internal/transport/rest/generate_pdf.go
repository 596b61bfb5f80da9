package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"yesod/internal/domain"
	"yesod/internal/transport/auth"
)

const (
	generationFailed = "Erreur lors de la génération du PDF"
	maxRequestBody   = 1 << 20
)

// generatePDF renders the posted form. Every failure, malformed JSON
// included, answers 500 with the same message.
func (h *Handler) generatePDF(w http.ResponseWriter, r *http.Request) {
	var req domain.NoticeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.logger.Error("decode notice request", zap.Error(err))
		JSON(w, http.StatusInternalServerError, map[string]string{"error": generationFailed})
		return
	}

	doc, err := h.generator.Generate(r.Context(), req, auth.UserIDPtr(r.Context()))
	if err != nil {
		h.logger.Error("generate notice", zap.Error(err))
		JSON(w, http.StatusInternalServerError, map[string]string{"error": generationFailed})
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/pdf")
	hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	hdr.Set("Content-Length", strconv.Itoa(len(doc.Data)))
	if doc.NoticeID != "" {
		hdr.Set("X-Notice-Id", doc.NoticeID)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.Warn("write notice", zap.Error(err))
	}
}
