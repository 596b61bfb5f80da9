package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yesod/internal/domain"
	"yesod/internal/repository"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var emailStatuses = map[string]bool{
	domain.EmailStatusSkipped: true,
	domain.EmailStatusPending: true,
	domain.EmailStatusSent:    true,
	domain.EmailStatusFailed:  true,
}

// NoticesExportRequest is the body of POST /export/notices.
type NoticesExportRequest struct {
	Fields []string
	Filter repository.NoticesFilter
}

type rawNoticesExportRequest struct {
	Fields []string `json:"fields"`

	Debtor          interface{} `json:"debtor"`
	Currency        interface{} `json:"currency"`
	EmailStatus     interface{} `json:"email_status"`
	CreateStartDate interface{} `json:"create_start_date"`
	CreateEndDate   interface{} `json:"create_end_date"`
}

// ValidateNoticesExportRequest reads the export body. An empty body exports
// the default columns of every notice.
func ValidateNoticesExportRequest(r *http.Request) (*NoticesExportRequest, error) {
	var raw rawNoticesExportRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	debtor, err := toStringPtr(raw.Debtor)
	if err != nil {
		return nil, &ValidationError{Field: "debtor", Message: "debtor must be string or empty"}
	}
	currency, err := toStringPtr(raw.Currency)
	if err != nil {
		return nil, &ValidationError{Field: "currency", Message: "currency must be string or empty"}
	}
	status, err := toStringPtr(raw.EmailStatus)
	if err != nil || (status != nil && !emailStatuses[*status]) {
		return nil, &ValidationError{Field: "email_status", Message: "email_status must be one of skipped, pending, sent, failed"}
	}
	from, err := toDatePtr(raw.CreateStartDate)
	if err != nil {
		return nil, &ValidationError{Field: "create_start_date", Message: "create_start_date must be YYYY-MM-DD or empty"}
	}
	to, err := toDatePtr(raw.CreateEndDate)
	if err != nil {
		return nil, &ValidationError{Field: "create_end_date", Message: "create_end_date must be YYYY-MM-DD or empty"}
	}

	return &NoticesExportRequest{
		Fields: raw.Fields,
		Filter: repository.NoticesFilter{
			Debtor:      debtor,
			Currency:    upperPtr(currency),
			EmailStatus: status,
			CreatedFrom: from,
			CreatedTo:   endOfDay(to),
		},
	}, nil
}

// ParseNoticesQuery reads the filters and paging of GET /notices.
func ParseNoticesQuery(q url.Values) (repository.NoticesFilter, error) {
	var f repository.NoticesFilter

	if v := strings.TrimSpace(q.Get("debtor")); v != "" {
		f.Debtor = &v
	}
	if v := strings.TrimSpace(q.Get("currency")); v != "" {
		f.Currency = upperPtr(&v)
	}
	if v := q.Get("email_status"); v != "" {
		if !emailStatuses[v] {
			return f, &ValidationError{Field: "email_status", Message: "email_status must be one of skipped, pending, sent, failed"}
		}
		f.EmailStatus = &v
	}

	from, err := toDatePtr(q.Get("created_from"))
	if err != nil {
		return f, &ValidationError{Field: "created_from", Message: "created_from must be YYYY-MM-DD"}
	}
	to, err := toDatePtr(q.Get("created_to"))
	if err != nil {
		return f, &ValidationError{Field: "created_to", Message: "created_to must be YYYY-MM-DD"}
	}
	f.CreatedFrom, f.CreatedTo = from, endOfDay(to)

	if f.Limit, err = nonNegative(q.Get("limit")); err != nil {
		return f, &ValidationError{Field: "limit", Message: "limit must be a positive integer"}
	}
	if f.Offset, err = nonNegative(q.Get("offset")); err != nil {
		return f, &ValidationError{Field: "offset", Message: "offset must be a positive integer"}
	}
	return f, nil
}

type ResendRequest struct {
	Email string `json:"email"`
}

func ValidateResendRequest(r *http.Request) (*ResendRequest, error) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "email is required"}
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return nil, &ValidationError{Field: "email", Message: "email must be a valid address"}
	}
	return &req, nil
}

func nonNegative(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &ValidationError{Message: "negative value"}
	}
	return n, nil
}

func upperPtr(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}

// endOfDay turns an inclusive end date into the exclusive bound the
// repository expects.
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	next := t.AddDate(0, 0, 1)
	return &next
}

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s, nil
	default:
		return nil, &ValidationError{Message: "invalid type for string field"}
	}
}

func toDatePtr(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, &ValidationError{Message: "invalid type for date field"}
	}
}
