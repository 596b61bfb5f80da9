package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoticeRequest is the form payload a formal notice is rendered from.
// Every field is optional.
type NoticeRequest struct {
	CreditorName    string `json:"creditorName"`
	CreditorAddress string `json:"creditorAddress"`
	CreditorPhone   string `json:"creditorPhone"`
	CreditorEmail   string `json:"creditorEmail"`

	DebtorName    string `json:"debtorName"`
	DebtorAddress string `json:"debtorAddress"`

	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`

	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	DueDate       string `json:"dueDate"`
	Description   string `json:"description"`

	EmailOption    bool   `json:"emailOption"`
	RecipientEmail string `json:"recipientEmail"`
}

// WantsEmail reports whether the requester asked for the notice to be mailed.
func (r NoticeRequest) WantsEmail() bool {
	return r.EmailOption && r.RecipientEmail != ""
}

const (
	EmailStatusSkipped = "skipped"
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// Notice is an archived, already rendered formal notice.
type Notice struct {
	ID     string
	UserID *int64

	CreditorName  string
	DebtorName    string
	InvoiceNumber string
	Amount        decimal.Decimal
	Currency      string

	FileKey  string
	FileName string
	Pages    int
	Size     int64

	EmailTo     *string
	EmailStatus string
	EmailError  *string

	CreatedAt time.Time
}
