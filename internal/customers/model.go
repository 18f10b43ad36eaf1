package customers

import "time"

// Customer is a retail shop account with the denormalized loyalty counters
// the ledger maintains. The counters are never written by this package.
type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ContactPerson  string    `json:"contact_person,omitempty"`
	Phone          string    `json:"phone"`
	BusinessType   string    `json:"business_type,omitempty"`
	Governorate    string    `json:"governorate,omitempty"`
	City           string    `json:"city,omitempty"`
	OpeningBalance float64   `json:"opening_balance"`
	CreditBalance  float64   `json:"credit_balance"`
	CreditPeriod   int       `json:"credit_period"`
	CreditLimit    float64   `json:"credit_limit"`
	PointsEarned   int64     `json:"points_earned"`
	PointsRedeemed int64     `json:"points_redeemed"`
	CurrentPoints  int64     `json:"current_points"`
	Level          int       `json:"level"`
	Classification int       `json:"classification"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
