package loyalty

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/products"
)

func invoiceID(id int64) *int64 { return &id }

func TestNetTransactionsCountsOnlyCreditInvoices(t *testing.T) {
	invoices := []InvoiceView{
		{ID: 1, Total: 100, Credit: true},
		{ID: 2, Total: 40, Credit: false},
		{ID: 3, Total: 60.10, Credit: true},
	}
	payments := []PaymentView{
		{ID: 1, InvoiceID: invoiceID(1), Amount: 30},
		{ID: 2, InvoiceID: invoiceID(2), Amount: 40},  // cash invoice, excluded
		{ID: 3, InvoiceID: nil, Amount: 25},           // standalone, settles opening balance
		{ID: 4, InvoiceID: invoiceID(99), Amount: 10}, // unknown invoice, excluded
	}
	require.InDelta(t, 130.10, NetTransactions(invoices, payments), 0.0001)
}

func TestNetTransactionsStaysExactOverLongHistories(t *testing.T) {
	var invoices []InvoiceView
	var payments []PaymentView
	for i := int64(1); i <= 1000; i++ {
		invoices = append(invoices, InvoiceView{ID: i, Total: 0.10, Credit: true})
		payments = append(payments, PaymentView{ID: i, InvoiceID: invoiceID(i), Amount: 0.10})
	}
	require.Zero(t, NetTransactions(invoices, payments))
}

func TestTotalBalanceAddsOpeningAndCredit(t *testing.T) {
	require.InDelta(t, 175.25, TotalBalance(Counters{OpeningBalance: 100.15, CreditBalance: 75.10}), 0.0001)
}

func TestClassificationCountsDistinctMainCategories(t *testing.T) {
	require.Equal(t, 0, Classification(nil))

	// Purchases only outside the main categories still classify as 1.
	require.Equal(t, 1, Classification([]InvoiceView{
		{ID: 1, Categories: []products.Category{products.CategoryOther}},
	}))

	invoices := []InvoiceView{
		{ID: 1, Categories: []products.Category{products.CategoryDashboard, products.CategoryTire}},
		{ID: 2, Categories: []products.Category{products.CategoryTire, products.CategoryOther}},
		{ID: 3, Categories: []products.Category{products.CategoryEngine}},
	}
	require.Equal(t, 3, Classification(invoices))
}

func TestClassificationNeverDecreasesAsInvoicesAccumulate(t *testing.T) {
	history := []InvoiceView{
		{ID: 1, Categories: []products.Category{products.CategoryOther}},
		{ID: 2, Categories: []products.Category{products.CategoryDashboard}},
		{ID: 3, Categories: []products.Category{products.CategoryOther}},
		{ID: 4, Categories: []products.Category{products.CategoryEngine, products.CategoryTire}},
	}
	prev := 0
	for i := range history {
		got := Classification(history[:i+1])
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
	require.Equal(t, 3, prev)
}

func TestScoreCustomersRanksAgainstPopulationMax(t *testing.T) {
	stats := []CustomerStats{
		{CustomerID: 1, TotalAmount: 1000, Frequency: 20, PointsEarned: 500, OnTimeRate: 1},
		{CustomerID: 2, TotalAmount: 500, Frequency: 10, PointsEarned: 250, OnTimeRate: 0.5},
		{CustomerID: 3},
	}
	scores := ScoreCustomers(stats, DefaultScoreWeights())
	require.Len(t, scores, 3)

	require.InDelta(t, 1.0, scores[0].Importance, 0.0001)
	require.Equal(t, 5, scores[0].Level)
	require.InDelta(t, 0.5, scores[1].Importance, 0.0001)
	require.Equal(t, 3, scores[1].Level)
	require.Zero(t, scores[2].Importance)
	require.Equal(t, 1, scores[2].Level)
}

func TestScoreCustomersFallsBackOnInvalidWeights(t *testing.T) {
	stats := []CustomerStats{{CustomerID: 1, TotalAmount: 100, Frequency: 5, PointsEarned: 50, OnTimeRate: 1}}
	got := ScoreCustomers(stats, ScoreWeights{Monetary: -1})
	want := ScoreCustomers(stats, DefaultScoreWeights())
	require.Equal(t, want, got)
}

func TestStatsFromInvoicesComputesOnTimeRate(t *testing.T) {
	invoices := []InvoiceView{
		{ID: 1, Total: 100, Credit: true, Settled: true, OnTime: true},
		{ID: 2, Total: 50, Credit: true, Settled: true, OnTime: false},
		{ID: 3, Total: 25, Credit: false, Settled: true, OnTime: true}, // cash, excluded from rate
		{ID: 4, Total: 10, Credit: true, Settled: false},               // unsettled, excluded
	}
	stats := StatsFromInvoices(7, invoices, 42)
	require.Equal(t, int64(7), stats.CustomerID)
	require.InDelta(t, 185.0, stats.TotalAmount, 0.0001)
	require.Equal(t, int64(4), stats.Frequency)
	require.Equal(t, int64(42), stats.PointsEarned)
	require.InDelta(t, 0.5, stats.OnTimeRate, 0.0001)
}

func TestCheckEligibilityReportsEachReasonSeparately(t *testing.T) {
	unpaid := []InvoiceView{{ID: 1, Settled: false}}
	paid := []InvoiceView{{ID: 1, Settled: true}}

	got := CheckEligibility(100, paid)
	require.True(t, got.Eligible)
	require.Empty(t, got.Reasons)

	got = CheckEligibility(0, paid)
	require.False(t, got.Eligible)
	require.Equal(t, []IneligibilityReason{ReasonInsufficientPoints}, got.Reasons)

	got = CheckEligibility(100, unpaid)
	require.False(t, got.Eligible)
	require.Equal(t, []IneligibilityReason{ReasonUnpaidInvoices}, got.Reasons)

	got = CheckEligibility(0, unpaid)
	require.False(t, got.Eligible)
	require.Equal(t, []IneligibilityReason{ReasonInsufficientPoints, ReasonUnpaidInvoices}, got.Reasons)
}

func TestStarsClampsToFive(t *testing.T) {
	require.Equal(t, "☆☆☆☆☆", Stars(0))
	require.Equal(t, "★★★☆☆", Stars(3))
	require.Equal(t, "★★★★★", Stars(9))
	require.Equal(t, "☆☆☆☆☆", Stars(-2))
}
