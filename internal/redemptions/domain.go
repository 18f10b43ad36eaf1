// Package redemptions implements the points redemption workflow. Every
// redemption is re-validated against the locked customer row inside its
// transaction, so the eligibility check cannot race with concurrent spends.
package redemptions

import "time"

// Redemption statuses. pending moves to completed or cancelled; both are
// terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Redemption spends points on catalog products.
type Redemption struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Status      string    `json:"status"`
	TotalPoints int64     `json:"total_points"`
	Note        string    `json:"note,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Items       []Item    `json:"items,omitempty"`
}

// Item is one redeemed product line.
type Item struct {
	ID           int64 `json:"id"`
	RedemptionID int64 `json:"redemption_id"`
	ProductID    int64 `json:"product_id"`
	Quantity     int64 `json:"quantity"`
	PointsEach   int64 `json:"points_each"`
	PointsTotal  int64 `json:"points_total"`
}

// CanComplete reports whether a redemption may move to completed.
func CanComplete(status string) bool { return status == StatusPending }

// CanCancel reports whether a redemption may move to cancelled.
func CanCancel(status string) bool { return status == StatusPending }

// CanDelete reports whether a redemption may be removed. Completed
// redemptions are part of the ledger trail and stay forever.
func CanDelete(status string) bool { return status == StatusCancelled }
