// Package loyalty implements the points ledger and the customer balance,
// classification and level engine. The ledger is the auditable source of
// truth; denormalized counters on the customer row are maintained with
// atomic server-side increments and checked by reconciliation.
package loyalty

import (
	"strings"
	"time"

	"github.com/glintcare/glintcare/internal/products"
)

// EntryType enumerates point-changing event kinds.
type EntryType string

const (
	EntryEarned       EntryType = "earned"
	EntryRedeemed     EntryType = "redeemed"
	EntryManualAdd    EntryType = "manual_add"
	EntryManualDeduct EntryType = "manual_deduct"
)

// EntrySource enumerates where a ledger entry originated.
type EntrySource string

const (
	SourceInvoice          EntrySource = "invoice"
	SourceRedemption       EntrySource = "redemption"
	SourceManualAdjustment EntrySource = "manual_adjustment"
)

// Entry is an immutable points ledger row. Entries are appended, never
// mutated or deleted.
type Entry struct {
	ID         string      `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Points     int64       `json:"points"`
	Type       EntryType   `json:"type"`
	Source     EntrySource `json:"source"`
	SourceID   int64       `json:"source_id,omitempty"`
	Note       string      `json:"note,omitempty"`
	CreatedBy  int64       `json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Counters mirrors the denormalized loyalty fields on the customer row.
type Counters struct {
	PointsEarned   int64
	PointsRedeemed int64
	CurrentPoints  int64
	CreditBalance  float64
	OpeningBalance float64
}

// InvoiceView is the validated invoice shape the engine operates on. Callers
// map stored rows into this form at the boundary instead of passing loosely
// typed rows through.
type InvoiceView struct {
	ID         int64
	Total      float64
	Credit     bool // issued on deferred payment terms
	Settled    bool // fully paid
	OnTime     bool // settled on or before the due date
	IssuedAt   time.Time
	Categories []products.Category
}

// PaymentView is the validated payment shape for balance aggregation.
// InvoiceID is nil for standalone payments against the running balance.
type PaymentView struct {
	ID        int64
	InvoiceID *int64
	Amount    float64
}

// CustomerStats carries the per-customer metrics consumed by the level
// scoring blend.
type CustomerStats struct {
	CustomerID   int64
	TotalAmount  float64
	Frequency    int64
	PointsEarned int64
	OnTimeRate   float64 // 0..1 over credit invoices with a due date
}

// ScoreWeights configures the importance-score blend. Each metric
// contributes positively; weights are normalized before use so only their
// ratio matters.
type ScoreWeights struct {
	Monetary   float64 `json:"monetary"`
	Frequency  float64 `json:"frequency"`
	Points     float64 `json:"points"`
	Timeliness float64 `json:"timeliness"`
}

// DefaultScoreWeights returns the standard blend.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Monetary: 0.4, Frequency: 0.25, Points: 0.2, Timeliness: 0.15}
}

func (w ScoreWeights) total() float64 {
	return w.Monetary + w.Frequency + w.Points + w.Timeliness
}

// Valid reports whether the weights can be normalized.
func (w ScoreWeights) Valid() bool {
	return w.Monetary >= 0 && w.Frequency >= 0 && w.Points >= 0 && w.Timeliness >= 0 && w.total() > 0
}

// MainCategories lists the five categories that count toward classification.
func MainCategories() []products.Category {
	return []products.Category{
		products.CategoryDashboard,
		products.CategoryEngine,
		products.CategoryExterior,
		products.CategoryTire,
		products.CategoryInterior,
	}
}

// Stars renders a 0..5 classification as a five-star string.
func Stars(classification int) string {
	if classification < 0 {
		classification = 0
	}
	if classification > 5 {
		classification = 5
	}
	return strings.Repeat("★", classification) + strings.Repeat("☆", 5-classification)
}
