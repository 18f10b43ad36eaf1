package loyalty

import (
	"github.com/glintcare/glintcare/internal/products"
)

// Score is the outcome of batch importance scoring for one customer.
type Score struct {
	CustomerID int64   `json:"customer_id"`
	Importance float64 `json:"importance"`
	Level      int     `json:"level"`
}

// Classification counts the distinct main categories a customer has
// purchased from across all invoices. A customer with at least one invoice
// is classified 1 even when none of the items fall in a main category; a
// customer with no invoices is classified 0.
func Classification(invoices []InvoiceView) int {
	if len(invoices) == 0 {
		return 0
	}
	main := make(map[products.Category]struct{}, 5)
	for _, c := range MainCategories() {
		main[c] = struct{}{}
	}
	seen := make(map[products.Category]struct{})
	for _, inv := range invoices {
		for _, cat := range inv.Categories {
			if _, ok := main[cat]; ok {
				seen[cat] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

// ScoreCustomers computes importance scores and levels for a population.
// Metrics are normalized against the population maximum, so scores only rank
// customers relative to each other. Scoring a single customer degenerates:
// every nonzero metric normalizes to 1.0 and the level collapses to the top
// threshold; callers ranking customers must score the whole population.
func ScoreCustomers(stats []CustomerStats, weights ScoreWeights) []Score {
	if len(stats) == 0 {
		return nil
	}
	if !weights.Valid() {
		weights = DefaultScoreWeights()
	}

	// Denominators floored at 1 to guard division by zero.
	maxAmount, maxFrequency, maxPoints, maxRate := 1.0, 1.0, 1.0, 1.0
	for _, s := range stats {
		if s.TotalAmount > maxAmount {
			maxAmount = s.TotalAmount
		}
		if f := float64(s.Frequency); f > maxFrequency {
			maxFrequency = f
		}
		if p := float64(s.PointsEarned); p > maxPoints {
			maxPoints = p
		}
	}

	wTotal := weights.total()
	scores := make([]Score, 0, len(stats))
	for _, s := range stats {
		importance := (weights.Monetary*(s.TotalAmount/maxAmount) +
			weights.Frequency*(float64(s.Frequency)/maxFrequency) +
			weights.Points*(float64(s.PointsEarned)/maxPoints) +
			weights.Timeliness*(s.OnTimeRate/maxRate)) / wTotal
		scores = append(scores, Score{
			CustomerID: s.CustomerID,
			Importance: importance,
			Level:      importanceScoreToLevel(importance),
		})
	}
	return scores
}

// importanceScoreToLevel maps a 0..1 importance score to a 1..5 level.
func importanceScoreToLevel(score float64) int {
	switch {
	case score >= 0.85:
		return 5
	case score >= 0.65:
		return 4
	case score >= 0.45:
		return 3
	case score >= 0.25:
		return 2
	default:
		return 1
	}
}

// StatsFromInvoices derives scoring metrics from a customer's invoices plus
// the stored cumulative points counter.
func StatsFromInvoices(customerID int64, invoices []InvoiceView, pointsEarned int64) CustomerStats {
	stats := CustomerStats{CustomerID: customerID, PointsEarned: pointsEarned}
	var creditSettled, creditOnTime int64
	for _, inv := range invoices {
		stats.TotalAmount += inv.Total
		stats.Frequency++
		if inv.Credit && inv.Settled {
			creditSettled++
			if inv.OnTime {
				creditOnTime++
			}
		}
	}
	if creditSettled > 0 {
		stats.OnTimeRate = float64(creditOnTime) / float64(creditSettled)
	}
	return stats
}
