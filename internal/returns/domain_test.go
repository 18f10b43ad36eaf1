package returns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/shared"
)

func TestValidateQuantitiesEnforcesBound(t *testing.T) {
	invoiced := map[int64]int64{1: 5, 2: 2}

	// Full quantity, nothing returned yet.
	err := ValidateQuantities(map[int64]int64{1: 5}, invoiced, nil)
	require.NoError(t, err)

	// One more than sold.
	err = ValidateQuantities(map[int64]int64{1: 6}, invoiced, nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Previously returned quantities count against the bound.
	err = ValidateQuantities(map[int64]int64{1: 3}, invoiced, map[int64]int64{1: 3})
	require.ErrorIs(t, err, shared.ErrValidation)
	err = ValidateQuantities(map[int64]int64{1: 2}, invoiced, map[int64]int64{1: 3})
	require.NoError(t, err)

	// Products not on the invoice are rejected.
	err = ValidateQuantities(map[int64]int64{9: 1}, invoiced, nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Non-positive quantities are rejected.
	err = ValidateQuantities(map[int64]int64{1: 0}, invoiced, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

type memoryReturnRepo struct {
	seq      int64
	returns  map[int64]Return
	invoiced map[int64]int64
}

func newMemoryReturnRepo(invoiced map[int64]int64) *memoryReturnRepo {
	return &memoryReturnRepo{returns: make(map[int64]Return), invoiced: invoiced}
}

func (m *memoryReturnRepo) returnedSoFar() map[int64]int64 {
	out := make(map[int64]int64)
	for _, ret := range m.returns {
		if ret.Status == StatusRejected {
			continue
		}
		for _, item := range ret.Items {
			out[item.ProductID] += item.Quantity
		}
	}
	return out
}

func (m *memoryReturnRepo) Create(_ context.Context, ret Return) (Return, error) {
	requested := make(map[int64]int64)
	for _, item := range ret.Items {
		requested[item.ProductID] += item.Quantity
	}
	if err := ValidateQuantities(requested, m.invoiced, m.returnedSoFar()); err != nil {
		return Return{}, err
	}
	m.seq++
	ret.ID = m.seq
	ret.Status = StatusPending
	m.returns[ret.ID] = ret
	return ret, nil
}

func (m *memoryReturnRepo) Get(_ context.Context, id int64) (Return, error) {
	ret, ok := m.returns[id]
	if !ok {
		return Return{}, shared.ErrNotFound
	}
	return ret, nil
}

func (m *memoryReturnRepo) List(_ context.Context, customerID int64, status string, limit, offset int) ([]Return, int, error) {
	var matched []Return
	for _, ret := range m.returns {
		if status != "" && ret.Status != status {
			continue
		}
		matched = append(matched, ret)
	}
	return matched, len(matched), nil
}

func (m *memoryReturnRepo) Decide(_ context.Context, id int64, status string) (Return, error) {
	ret, ok := m.returns[id]
	if !ok {
		return Return{}, shared.ErrNotFound
	}
	if !CanDecide(ret.Status) {
		return Return{}, shared.ErrConflict
	}
	ret.Status = status
	m.returns[id] = ret
	return ret, nil
}

func TestCreateAccumulatesAgainstTheBound(t *testing.T) {
	repo := newMemoryReturnRepo(map[int64]int64{1: 4})
	svc := NewService(repo)

	first, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1, InvoiceID: 10,
		Lines: []LineInput{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	// 3 of 4 already pending; another 2 would exceed.
	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: 1, InvoiceID: 10,
		Lines: []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Rejecting the first frees its quantity.
	_, err = svc.Reject(context.Background(), first.ID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: 1, InvoiceID: 10,
		Lines: []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
}

func TestDecisionsAreTerminal(t *testing.T) {
	repo := newMemoryReturnRepo(map[int64]int64{1: 4})
	svc := NewService(repo)

	ret, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1, InvoiceID: 10,
		Lines: []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), ret.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)

	_, err = svc.Reject(context.Background(), ret.ID)
	require.ErrorIs(t, err, shared.ErrConflict)
}
