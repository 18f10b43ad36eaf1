package loyalty

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/glintcare/glintcare/internal/shared"
)

// AdjustmentInput describes a manual point adjustment.
type AdjustmentInput struct {
	CustomerID int64
	Points     int64 // signed delta, never zero
	Note       string
	CreatedBy  int64
}

// BalanceSummary is the per-customer loyalty snapshot served to callers.
type BalanceSummary struct {
	CustomerID     int64   `json:"customer_id"`
	PointsEarned   int64   `json:"points_earned"`
	PointsRedeemed int64   `json:"points_redeemed"`
	CurrentPoints  int64   `json:"current_points"`
	OpeningBalance float64 `json:"opening_balance"`
	CreditBalance  float64 `json:"credit_balance"`
	TotalBalance   float64 `json:"total_balance"`
	NetCredit      float64 `json:"net_credit"`
}

// Drift reports a divergence between a denormalized counter and the value
// recomputed from source records.
type Drift struct {
	CustomerID int64   `json:"customer_id"`
	Field      string  `json:"field"`
	Stored     float64 `json:"stored"`
	Expected   float64 `json:"expected"`
}

// RepositoryPort defines data access for the loyalty service.
type RepositoryPort interface {
	Adjust(ctx context.Context, input AdjustmentInput) (*Entry, error)
	History(ctx context.Context, customerID int64, limit, offset int) ([]Entry, error)
	Counters(ctx context.Context, customerID int64) (Counters, error)
	InvoiceViews(ctx context.Context, customerID int64) ([]InvoiceView, error)
	PaymentViews(ctx context.Context, customerID int64) ([]PaymentView, error)
	ActivityByCustomer(ctx context.Context) (map[int64][]InvoiceView, error)
	PaymentViewsByCustomer(ctx context.Context) (map[int64][]PaymentView, error)
	LedgerSumsByCustomer(ctx context.Context) (map[int64]LedgerSum, error)
	CountersByCustomer(ctx context.Context) (map[int64]Counters, error)
	UpdateTiers(ctx context.Context, customerID int64, level, classification int) error
}

// WeightsSource supplies the configured importance-score weights.
type WeightsSource interface {
	ScoreWeights(ctx context.Context) (ScoreWeights, error)
}

// Service handles loyalty business logic.
type Service struct {
	repo    RepositoryPort
	weights WeightsSource
	logger  *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, weights WeightsSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, weights: weights, logger: logger}
}

// Adjust applies a manual point adjustment through the ledger.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (*Entry, error) {
	if input.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.Points == 0 {
		return nil, fmt.Errorf("%w: adjustment points must not be zero", shared.ErrValidation)
	}
	if input.Points < 0 {
		counters, err := s.repo.Counters(ctx, input.CustomerID)
		if err != nil {
			return nil, err
		}
		if counters.CurrentPoints+input.Points < 0 {
			return nil, fmt.Errorf("%w: adjustment would drive the balance negative", shared.ErrValidation)
		}
	}
	return s.repo.Adjust(ctx, input)
}

// History lists ledger entries for a customer, newest first.
func (s *Service) History(ctx context.Context, customerID int64, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.History(ctx, customerID, limit, offset)
}

// Summary computes the customer's balance snapshot. The aggregation is a
// pure function of the loaded rows and never mutates stored aggregates.
func (s *Service) Summary(ctx context.Context, customerID int64) (BalanceSummary, error) {
	counters, err := s.repo.Counters(ctx, customerID)
	if err != nil {
		return BalanceSummary{}, err
	}
	invoices, err := s.repo.InvoiceViews(ctx, customerID)
	if err != nil {
		return BalanceSummary{}, err
	}
	payments, err := s.repo.PaymentViews(ctx, customerID)
	if err != nil {
		return BalanceSummary{}, err
	}
	return BalanceSummary{
		CustomerID:     customerID,
		PointsEarned:   counters.PointsEarned,
		PointsRedeemed: counters.PointsRedeemed,
		CurrentPoints:  counters.CurrentPoints,
		OpeningBalance: counters.OpeningBalance,
		CreditBalance:  counters.CreditBalance,
		TotalBalance:   TotalBalance(counters),
		NetCredit:      NetTransactions(invoices, payments),
	}, nil
}

// CheckRedemption runs the side-effect-free eligibility gate.
func (s *Service) CheckRedemption(ctx context.Context, customerID int64) (Eligibility, error) {
	counters, err := s.repo.Counters(ctx, customerID)
	if err != nil {
		return Eligibility{}, err
	}
	invoices, err := s.repo.InvoiceViews(ctx, customerID)
	if err != nil {
		return Eligibility{}, err
	}
	return CheckEligibility(counters.CurrentPoints, invoices), nil
}

// RefreshTiers recomputes level and classification for the population and
// stores the results. Returns the number of customers updated.
func (s *Service) RefreshTiers(ctx context.Context) (int, error) {
	activity, err := s.repo.ActivityByCustomer(ctx)
	if err != nil {
		return 0, err
	}
	counters, err := s.repo.CountersByCustomer(ctx)
	if err != nil {
		return 0, err
	}

	weights := DefaultScoreWeights()
	if s.weights != nil {
		if configured, err := s.weights.ScoreWeights(ctx); err == nil && configured.Valid() {
			weights = configured
		} else if err != nil && s.logger != nil {
			s.logger.Warn("loyalty: falling back to default weights", slog.Any("error", err))
		}
	}

	stats := make([]CustomerStats, 0, len(counters))
	for customerID, c := range counters {
		stats = append(stats, StatsFromInvoices(customerID, activity[customerID], c.PointsEarned))
	}
	scores := ScoreCustomers(stats, weights)

	updated := 0
	for _, score := range scores {
		classification := Classification(activity[score.CustomerID])
		if err := s.repo.UpdateTiers(ctx, score.CustomerID, score.Level, classification); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Reconcile recomputes every customer's counters from the ledger and credit
// position from invoices/payments, reporting drift against the denormalized
// fields. Detection only; repairs are an operator decision.
func (s *Service) Reconcile(ctx context.Context) ([]Drift, error) {
	counters, err := s.repo.CountersByCustomer(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.LedgerSumsByCustomer(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.ActivityByCustomer(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.PaymentViewsByCustomer(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for customerID, c := range counters {
		sum := ledger[customerID]
		if c.PointsEarned != sum.Earned {
			drifts = append(drifts, Drift{customerID, "points_earned", float64(c.PointsEarned), float64(sum.Earned)})
		}
		if c.PointsRedeemed != sum.Redeemed {
			drifts = append(drifts, Drift{customerID, "points_redeemed", float64(c.PointsRedeemed), float64(sum.Redeemed)})
		}
		if c.CurrentPoints != c.PointsEarned-c.PointsRedeemed {
			drifts = append(drifts, Drift{customerID, "current_points", float64(c.CurrentPoints), float64(c.PointsEarned - c.PointsRedeemed)})
		}
		expectedCredit := NetTransactions(activity[customerID], payments[customerID])
		if math.Abs(c.CreditBalance-expectedCredit) > 0.005 {
			drifts = append(drifts, Drift{customerID, "credit_balance", c.CreditBalance, expectedCredit})
		}
	}
	if len(drifts) > 0 && s.logger != nil {
		s.logger.Warn("loyalty: reconciliation drift detected", slog.Int("count", len(drifts)))
	}
	return drifts, nil
}
