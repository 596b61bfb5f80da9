package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yesod/internal/domain"
	"yesod/internal/service"
	"yesod/internal/transport/auth"
)

type noticeView struct {
	ID            string          `json:"id"`
	CreditorName  string          `json:"creditor_name"`
	DebtorName    string          `json:"debtor_name"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	FileName      string          `json:"file_name"`
	Pages         int             `json:"pages"`
	Size          int64           `json:"size"`
	EmailTo       *string         `json:"email_to"`
	EmailStatus   string          `json:"email_status"`
	EmailError    *string         `json:"email_error"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toNoticeView(n domain.Notice) noticeView {
	return noticeView{
		ID:            n.ID,
		CreditorName:  n.CreditorName,
		DebtorName:    n.DebtorName,
		InvoiceNumber: n.InvoiceNumber,
		Amount:        n.Amount,
		Currency:      n.Currency,
		FileName:      n.FileName,
		Pages:         n.Pages,
		Size:          n.Size,
		EmailTo:       n.EmailTo,
		EmailStatus:   n.EmailStatus,
		EmailError:    n.EmailError,
		CreatedAt:     n.CreatedAt,
	}
}

func (h *Handler) listNotices(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	filter, err := ParseNoticesQuery(r.URL.Query())
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	items, total, err := h.notices.List(r.Context(), filter, userID)
	if err != nil {
		h.logger.Error("list notices", zap.Int64("user_id", userID), zap.Error(err))
		ErrorInternal(w, "failed to list notices")
		return
	}

	views := make([]noticeView, 0, len(items))
	for _, n := range items {
		views = append(views, toNoticeView(n))
	}
	Success(w, "", map[string]interface{}{
		"items":  views,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) getNotice(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	n, err := h.notices.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.noticeError(w, "get notice", err)
		return
	}
	Success(w, "", toNoticeView(*n))
}

func (h *Handler) downloadNotice(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	url, err := h.notices.DownloadURL(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.noticeError(w, "notice download url", err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) resendNotice(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateResendRequest(r)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.notices.Resend(r.Context(), id, userID, req.Email); err != nil {
		h.noticeError(w, "resend notice", err)
		return
	}

	SuccessAccepted(w, "Envoi programmé", map[string]interface{}{
		"notice_id": id,
		"email_to":  req.Email,
	})
}

func (h *Handler) noticeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNoticeNotFound):
		ErrorNotFound(w, "notice not found")
	case errors.Is(err, service.ErrDeliveryDisabled):
		ErrorUnavailable(w, "email delivery is disabled")
	default:
		h.logger.Error(op, zap.Error(err))
		ErrorInternal(w, "internal error")
	}
}
