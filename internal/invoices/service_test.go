package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

type memoryInvoiceRepo struct {
	seq      int64
	invoices map[int64]Invoice
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[int64]Invoice)}
}

func (m *memoryInvoiceRepo) Create(_ context.Context, inv Invoice) (Invoice, error) {
	m.seq++
	inv.ID = m.seq
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryInvoiceRepo) Get(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, nil
}

func (m *memoryInvoiceRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]Invoice, int, error) {
	var matched []Invoice
	for _, inv := range m.invoices {
		if filter.CustomerID > 0 && inv.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		matched = append(matched, inv)
	}
	return matched, len(matched), nil
}

func (m *memoryInvoiceRepo) MarkOverdue(_ context.Context, graceDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -graceDays)
	marked := 0
	for id, inv := range m.invoices {
		if inv.PaymentMethod != MethodCredit || inv.DueAt == nil {
			continue
		}
		if (inv.Status == StatusUnpaid || inv.Status == StatusPartial) && inv.DueAt.Before(cutoff) {
			inv.Status = StatusOverdue
			m.invoices[id] = inv
			marked++
		}
	}
	return marked, nil
}

type stubCatalog struct {
	products map[int64]products.Product
}

func (s stubCatalog) GetMany(_ context.Context, ids []int64) (map[int64]products.Product, error) {
	out := make(map[int64]products.Product, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		out[id] = p
	}
	return out, nil
}

type stubCustomers struct {
	period int
}

func (s stubCustomers) CreditPeriod(context.Context, int64) (int, error) {
	return s.period, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{products: map[int64]products.Product{
		1: {ID: 1, Name: "Dash Polish", Category: products.CategoryDashboard, Price: 12.50, PointsEarned: 3},
		2: {ID: 2, Name: "Tire Foam", Category: products.CategoryTire, Price: 8.00, PointsEarned: 2},
	}}
}

func TestCreatePricesLinesAndComputesPoints(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, testCatalog(), stubCustomers{period: 30}, nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		PaymentMethod: MethodCash,
		Lines:         []LineInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}},
	})
	require.NoError(t, err)
	require.InDelta(t, 49.0, inv.TotalAmount, 0.0001)
	require.Equal(t, int64(2*3+3*2), inv.PointsEarned)
	require.Equal(t, StatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	require.Nil(t, inv.DueAt)
}

func TestCreateCreditInvoiceGetsDueDate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, testCatalog(), stubCustomers{period: 30}, nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    1,
		PaymentMethod: MethodCredit,
		Lines:         []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Nil(t, inv.PaidAt)
	require.NotNil(t, inv.DueAt)
	require.WithinDuration(t, inv.IssuedAt.AddDate(0, 0, 30), *inv.DueAt, time.Second)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryInvoiceRepo(), testCatalog(), stubCustomers{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{CustomerID: 1, PaymentMethod: "cheque",
		Lines: []LineInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{CustomerID: 1, PaymentMethod: MethodCash})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{CustomerID: 1, PaymentMethod: MethodCash,
		Lines: []LineInput{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkOverdueSkipsSettledInvoices(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, testCatalog(), stubCustomers{}, nil)

	past := time.Now().AddDate(0, 0, -10)
	repo.seq++
	repo.invoices[repo.seq] = Invoice{ID: repo.seq, PaymentMethod: MethodCredit, Status: StatusUnpaid, DueAt: &past}
	repo.seq++
	repo.invoices[repo.seq] = Invoice{ID: repo.seq, PaymentMethod: MethodCredit, Status: StatusPaid, DueAt: &past}

	marked, err := svc.MarkOverdue(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, marked)
}
