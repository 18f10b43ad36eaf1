package redemptions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

// memoryRedemptionRepo mirrors the transactional repository: creation checks
// the counters, and every mutation keeps current = earned - redeemed.
type memoryRedemptionRepo struct {
	seq         int64
	redemptions map[int64]Redemption

	pointsEarned   int64
	pointsRedeemed int64
	unsettled      int
}

func newMemoryRedemptionRepo(earned int64) *memoryRedemptionRepo {
	return &memoryRedemptionRepo{redemptions: make(map[int64]Redemption), pointsEarned: earned}
}

func (m *memoryRedemptionRepo) currentPoints() int64 {
	return m.pointsEarned - m.pointsRedeemed
}

func (m *memoryRedemptionRepo) Create(_ context.Context, red Redemption) (Redemption, error) {
	if m.currentPoints() <= 0 {
		return Redemption{}, fmt.Errorf("%w: no points available", shared.ErrNotEligible)
	}
	if m.unsettled > 0 {
		return Redemption{}, fmt.Errorf("%w: customer has unpaid invoices", shared.ErrNotEligible)
	}
	if m.currentPoints() < red.TotalPoints {
		return Redemption{}, fmt.Errorf("%w: insufficient balance", shared.ErrNotEligible)
	}
	m.seq++
	red.ID = m.seq
	red.Status = StatusPending
	m.redemptions[red.ID] = red
	m.pointsRedeemed += red.TotalPoints
	return red, nil
}

func (m *memoryRedemptionRepo) Get(_ context.Context, id int64) (Redemption, error) {
	red, ok := m.redemptions[id]
	if !ok {
		return Redemption{}, shared.ErrNotFound
	}
	return red, nil
}

func (m *memoryRedemptionRepo) List(_ context.Context, customerID int64, status string, limit, offset int) ([]Redemption, int, error) {
	var matched []Redemption
	for _, red := range m.redemptions {
		if customerID > 0 && red.CustomerID != customerID {
			continue
		}
		if status != "" && red.Status != status {
			continue
		}
		matched = append(matched, red)
	}
	return matched, len(matched), nil
}

func (m *memoryRedemptionRepo) Complete(_ context.Context, id, _ int64) (Redemption, error) {
	red, ok := m.redemptions[id]
	if !ok {
		return Redemption{}, shared.ErrNotFound
	}
	if !CanComplete(red.Status) {
		return Redemption{}, fmt.Errorf("%w: cannot complete a %s redemption", shared.ErrConflict, red.Status)
	}
	red.Status = StatusCompleted
	m.redemptions[id] = red
	return red, nil
}

func (m *memoryRedemptionRepo) Cancel(_ context.Context, id, _ int64) (Redemption, error) {
	red, ok := m.redemptions[id]
	if !ok {
		return Redemption{}, shared.ErrNotFound
	}
	if !CanCancel(red.Status) {
		return Redemption{}, fmt.Errorf("%w: cannot cancel a %s redemption", shared.ErrConflict, red.Status)
	}
	red.Status = StatusCancelled
	m.redemptions[id] = red
	m.pointsRedeemed -= red.TotalPoints
	return red, nil
}

func (m *memoryRedemptionRepo) Delete(_ context.Context, id int64) error {
	red, ok := m.redemptions[id]
	if !ok {
		return shared.ErrNotFound
	}
	if !CanDelete(red.Status) {
		return fmt.Errorf("%w: only cancelled redemptions can be deleted", shared.ErrConflict)
	}
	delete(m.redemptions, id)
	return nil
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

type memoryIdempotency struct {
	seen map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	full := module + ":" + key
	if m.seen[full] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[full] = true
	return nil
}

func testCatalog() stubCatalog {
	return stubCatalog{products: map[int64]products.Product{
		1: {ID: 1, Name: "Interior Kit", Category: products.CategoryInterior, PointsRequired: 40},
		2: {ID: 2, Name: "Sticker Pack", Category: products.CategoryOther, PointsRequired: 0},
	}}
}

func newTestService(repo *memoryRedemptionRepo) *Service {
	return NewService(repo, testCatalog(), &memoryIdempotency{})
}

func TestCreateSpendsPointsAndKeepsInvariant(t *testing.T) {
	repo := newMemoryRedemptionRepo(100)
	svc := newTestService(repo)

	red, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(80), red.TotalPoints)
	require.Equal(t, StatusPending, red.Status)
	require.Equal(t, int64(20), repo.currentPoints())
	require.Equal(t, repo.pointsEarned-repo.pointsRedeemed, repo.currentPoints())
}

func TestCreateRejectsIneligibleCustomers(t *testing.T) {
	repo := newMemoryRedemptionRepo(100)
	repo.unsettled = 1
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)

	repo.unsettled = 0
	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 3}}, // 120 > 100
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)
	require.Equal(t, int64(100), repo.currentPoints())
}

func TestCreateRejectsNonRedeemableProducts(t *testing.T) {
	svc := newTestService(newMemoryRedemptionRepo(100))

	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 2, Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelRestoresTheExactAmount(t *testing.T) {
	repo := newMemoryRedemptionRepo(100)
	svc := newTestService(repo)

	red, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(60), repo.currentPoints())

	cancelled, err := svc.Cancel(context.Background(), red.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(100), repo.currentPoints())

	// Terminal states are final.
	_, err = svc.Complete(context.Background(), red.ID, 9)
	require.ErrorIs(t, err, shared.ErrConflict)
	_, err = svc.Cancel(context.Background(), red.ID, 9)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCompleteLeavesBalanceUntouched(t *testing.T) {
	repo := newMemoryRedemptionRepo(100)
	svc := newTestService(repo)

	red, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), red.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.Equal(t, int64(60), repo.currentPoints())
}

func TestDeleteOnlyAllowsCancelled(t *testing.T) {
	repo := newMemoryRedemptionRepo(200)
	svc := newTestService(repo)

	red, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Lines:      []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), red.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Cancel(context.Background(), red.ID, 9)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), red.ID))

	_, err = svc.Get(context.Background(), red.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDuplicateIdempotencyKeyConflicts(t *testing.T) {
	repo := newMemoryRedemptionRepo(500)
	svc := newTestService(repo)

	input := CreateInput{
		CustomerID:     1,
		Lines:          []LineInput{{ProductID: 1, Quantity: 1}},
		IdempotencyKey: "req-abc",
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, int64(460), repo.currentPoints())
}
