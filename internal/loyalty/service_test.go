package loyalty

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

type memoryLoyaltyRepo struct {
	entries  []Entry
	counters map[int64]Counters
	invoices map[int64][]InvoiceView
	payments map[int64][]PaymentView
	tiers    map[int64][2]int
}

func newMemoryLoyaltyRepo() *memoryLoyaltyRepo {
	return &memoryLoyaltyRepo{
		counters: make(map[int64]Counters),
		invoices: make(map[int64][]InvoiceView),
		payments: make(map[int64][]PaymentView),
		tiers:    make(map[int64][2]int),
	}
}

func (m *memoryLoyaltyRepo) Adjust(_ context.Context, input AdjustmentInput) (*Entry, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		CustomerID: input.CustomerID,
		Points:     input.Points,
		Type:       EntryManualAdd,
		Source:     SourceManualAdjustment,
		Note:       input.Note,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  time.Now(),
	}
	c := m.counters[input.CustomerID]
	if input.Points < 0 {
		entry.Type = EntryManualDeduct
		c.PointsRedeemed += -input.Points
	} else {
		c.PointsEarned += input.Points
	}
	c.CurrentPoints = c.PointsEarned - c.PointsRedeemed
	m.counters[input.CustomerID] = c
	m.entries = append(m.entries, entry)
	return &entry, nil
}

func (m *memoryLoyaltyRepo) History(_ context.Context, customerID int64, limit, offset int) ([]Entry, error) {
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].CustomerID == customerID {
			out = append(out, m.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryLoyaltyRepo) Counters(_ context.Context, customerID int64) (Counters, error) {
	return m.counters[customerID], nil
}

func (m *memoryLoyaltyRepo) InvoiceViews(_ context.Context, customerID int64) ([]InvoiceView, error) {
	return m.invoices[customerID], nil
}

func (m *memoryLoyaltyRepo) PaymentViews(_ context.Context, customerID int64) ([]PaymentView, error) {
	return m.payments[customerID], nil
}

func (m *memoryLoyaltyRepo) ActivityByCustomer(context.Context) (map[int64][]InvoiceView, error) {
	return m.invoices, nil
}

func (m *memoryLoyaltyRepo) PaymentViewsByCustomer(context.Context) (map[int64][]PaymentView, error) {
	return m.payments, nil
}

func (m *memoryLoyaltyRepo) LedgerSumsByCustomer(context.Context) (map[int64]LedgerSum, error) {
	sums := make(map[int64]LedgerSum)
	for _, e := range m.entries {
		sum := sums[e.CustomerID]
		switch e.Type {
		case EntryEarned, EntryManualAdd:
			sum.Earned += e.Points
		case EntryRedeemed, EntryManualDeduct:
			sum.Redeemed += -e.Points
		}
		sums[e.CustomerID] = sum
	}
	return sums, nil
}

func (m *memoryLoyaltyRepo) CountersByCustomer(context.Context) (map[int64]Counters, error) {
	return m.counters, nil
}

func (m *memoryLoyaltyRepo) UpdateTiers(_ context.Context, customerID int64, level, classification int) error {
	m.tiers[customerID] = [2]int{level, classification}
	return nil
}

type staticWeights struct {
	weights ScoreWeights
	err     error
}

func (s staticWeights) ScoreWeights(context.Context) (ScoreWeights, error) {
	return s.weights, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdjustRejectsOverdraw(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustmentInput{CustomerID: 1, Points: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Adjust(ctx, AdjustmentInput{CustomerID: 1, Points: 100, CreatedBy: 9})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, AdjustmentInput{CustomerID: 1, Points: -150, CreatedBy: 9})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Adjust(ctx, AdjustmentInput{CustomerID: 1, Points: -100, CreatedBy: 9})
	require.NoError(t, err)

	counters, err := repo.Counters(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, counters.CurrentPoints)
}

func TestSummaryComposesBalances(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	repo.counters[1] = Counters{
		PointsEarned: 120, PointsRedeemed: 20, CurrentPoints: 100,
		OpeningBalance: 50, CreditBalance: 70,
	}
	repo.invoices[1] = []InvoiceView{{ID: 1, Total: 100, Credit: true}}
	repo.payments[1] = []PaymentView{{ID: 1, InvoiceID: invoiceID(1), Amount: 30}}

	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(100), summary.CurrentPoints)
	require.InDelta(t, 120.0, summary.TotalBalance, 0.0001)
	require.InDelta(t, 70.0, summary.NetCredit, 0.0001)
}

func TestRefreshTiersStoresLevelAndClassification(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	repo.counters[1] = Counters{PointsEarned: 500}
	repo.counters[2] = Counters{PointsEarned: 50}
	repo.invoices[1] = []InvoiceView{
		{ID: 1, Total: 1000, Credit: true, Settled: true, OnTime: true,
			Categories: []products.Category{products.CategoryDashboard, products.CategoryTire}},
		{ID: 2, Total: 500, Categories: []products.Category{products.CategoryEngine}},
	}
	repo.invoices[2] = []InvoiceView{
		{ID: 3, Total: 100, Categories: []products.Category{products.CategoryOther}},
	}

	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	updated, err := svc.RefreshTiers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, updated)

	require.Equal(t, [2]int{5, 3}, repo.tiers[1])
	require.Equal(t, 1, repo.tiers[2][1])
	require.Less(t, repo.tiers[2][0], repo.tiers[1][0])
}

func TestReconcileFlagsCounterDrift(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustmentInput{CustomerID: 1, Points: 100, CreatedBy: 9})
	require.NoError(t, err)

	drifts, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)

	// Simulate a counter diverging from the ledger while the derived
	// balance still reads the old value.
	c := repo.counters[1]
	c.PointsEarned = 90
	repo.counters[1] = c

	drifts, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 2)
	require.Equal(t, "points_earned", drifts[0].Field)
	require.InDelta(t, 90.0, drifts[0].Stored, 0.0001)
	require.InDelta(t, 100.0, drifts[0].Expected, 0.0001)
	require.Equal(t, "current_points", drifts[1].Field)
}

func TestReconcileIgnoresCancelledRedemptions(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	now := time.Now()
	// Earn 100, redeem 40, then cancel the redemption. The reversal is a
	// positive entry of type redeemed, so the type-wise ledger sums must net
	// the spend back out to match the restored counters.
	repo.entries = append(repo.entries,
		Entry{ID: uuid.NewString(), CustomerID: 1, Points: 100, Type: EntryEarned, Source: SourceInvoice, CreatedAt: now},
		Entry{ID: uuid.NewString(), CustomerID: 1, Points: -40, Type: EntryRedeemed, Source: SourceRedemption, CreatedAt: now},
		Entry{ID: uuid.NewString(), CustomerID: 1, Points: 40, Type: EntryRedeemed, Source: SourceRedemption, Note: "redemption cancelled", CreatedAt: now},
	)
	repo.counters[1] = Counters{PointsEarned: 100, PointsRedeemed: 0, CurrentPoints: 100}

	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	drifts, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestReconcileFlagsCreditDrift(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	repo.counters[1] = Counters{CreditBalance: 40}
	repo.invoices[1] = []InvoiceView{{ID: 1, Total: 100, Credit: true}}
	repo.payments[1] = []PaymentView{{ID: 1, InvoiceID: invoiceID(1), Amount: 30}}

	svc := NewService(repo, staticWeights{weights: DefaultScoreWeights()}, testLogger())
	drifts, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, "credit_balance", drifts[0].Field)
	require.InDelta(t, 40.0, drifts[0].Stored, 0.0001)
	require.InDelta(t, 70.0, drifts[0].Expected, 0.0001)
}

func TestRefreshTiersFallsBackWhenWeightsSourceFails(t *testing.T) {
	repo := newMemoryLoyaltyRepo()
	repo.counters[1] = Counters{PointsEarned: 10}
	repo.invoices[1] = []InvoiceView{{ID: 1, Total: 100}}

	svc := NewService(repo, staticWeights{err: context.DeadlineExceeded}, testLogger())
	updated, err := svc.RefreshTiers(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.NotZero(t, repo.tiers[1][0])
}
