// Package returns implements merchandise return requests against invoices.
package returns

import (
	"fmt"
	"time"

	"github.com/glintcare/glintcare/internal/shared"
)

// Return statuses. pending moves to approved or rejected; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Return is a request to take goods back from a customer.
type Return struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	InvoiceID  int64     `json:"invoice_id"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Items      []Item    `json:"items,omitempty"`
}

// Item is one returned product line.
type Item struct {
	ID        int64 `json:"id"`
	ReturnID  int64 `json:"return_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// ValidateQuantities enforces the return bound per product: the requested
// quantity plus everything already returned (pending and approved requests
// both count) must not exceed what the invoice sold.
func ValidateQuantities(requested, invoiced, returned map[int64]int64) error {
	for productID, qty := range requested {
		if qty <= 0 {
			return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		sold, ok := invoiced[productID]
		if !ok {
			return fmt.Errorf("%w: product %d is not on the invoice", shared.ErrValidation, productID)
		}
		if qty+returned[productID] > sold {
			return fmt.Errorf("%w: product %d exceeds returnable quantity (%d of %d already returned)",
				shared.ErrValidation, productID, returned[productID], sold)
		}
	}
	return nil
}

// CanDecide reports whether a return may still be approved or rejected.
func CanDecide(status string) bool { return status == StatusPending }
