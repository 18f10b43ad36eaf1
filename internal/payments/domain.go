// Package payments implements customer payment collection. A payment either
// settles a specific invoice or reduces the customer's standing balance;
// only invoice-linked payments participate in credit computation.
package payments

import "time"

// Payment types.
const (
	TypeInvoice = "invoice"
	TypeAccount = "account"
)

// Payment is money received from a customer.
type Payment struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	InvoiceID  *int64    `json:"invoice_id,omitempty"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Note       string    `json:"note,omitempty"`
	Type       string    `json:"type"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}
