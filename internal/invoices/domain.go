// Package invoices implements sales invoicing. Creating an invoice is the
// only way customers earn points: the earn entry and the counter bump happen
// in the same transaction as the invoice insert.
package invoices

import "time"

// Payment methods.
const (
	MethodCash   = "cash"
	MethodCredit = "credit"
)

// Invoice statuses. Transitions are driven by payments; overdue marking is a
// scheduled job over credit invoices past their due date.
const (
	StatusUnpaid  = "unpaid"
	StatusPartial = "partial"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// Invoice is a sale with its loyalty outcome.
type Invoice struct {
	ID            int64      `json:"id"`
	CustomerID    int64      `json:"customer_id"`
	TotalAmount   float64    `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	PointsEarned  int64      `json:"points_earned"`
	IssuedAt      time.Time  `json:"issued_at"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	Note          string     `json:"note,omitempty"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []Item     `json:"items,omitempty"`
}

// Item is one invoice line, priced from the catalog at creation time.
type Item struct {
	ID           int64   `json:"id"`
	InvoiceID    int64   `json:"invoice_id"`
	ProductID    int64   `json:"product_id"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	LineTotal    float64 `json:"line_total"`
	PointsEarned int64   `json:"points_earned"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	CustomerID int64
	Status     string
	Method     string
}
