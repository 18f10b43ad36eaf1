package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/shared"
)

type memoryProductRepo struct {
	seq      int64
	products map[int64]Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: make(map[int64]Product)}
}

func (m *memoryProductRepo) Create(_ context.Context, p Product) (Product, error) {
	m.seq++
	p.ID = m.seq
	p.IsActive = true
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryProductRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryProductRepo) GetMany(_ context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	for _, id := range ids {
		p, ok := m.products[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		out[id] = p
	}
	return out, nil
}

func (m *memoryProductRepo) List(_ context.Context, category Category, limit, offset int) ([]Product, int, error) {
	var matched []Product
	for _, p := range m.products {
		if category == "" || p.Category == category {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *memoryProductRepo) Update(_ context.Context, p Product) (Product, error) {
	if _, ok := m.products[p.ID]; !ok {
		return Product{}, shared.ErrNotFound
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryProductRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func TestCreateValidatesCategory(t *testing.T) {
	svc := NewService(newMemoryProductRepo())

	_, err := svc.Create(context.Background(), Product{Name: "Wax", Category: "detailing"})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.Create(context.Background(), Product{Name: "Wax", Category: CategoryExterior, Price: 45})
	require.NoError(t, err)
	require.Equal(t, CategoryExterior, p.Category)
	require.True(t, p.IsActive)
}

func TestCreateRejectsNegativePointValues(t *testing.T) {
	svc := NewService(newMemoryProductRepo())

	_, err := svc.Create(context.Background(), Product{Name: "Polish", Category: CategoryExterior, PointsEarned: -5})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{Name: "Polish", Category: CategoryExterior, Price: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListFiltersByCategory(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), Product{Name: "Tire Shine", Category: CategoryTire})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Product{Name: "Engine Degreaser", Category: CategoryEngine})
	require.NoError(t, err)

	items, pagination, err := svc.List(context.Background(), CategoryTire, 1, 25)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Tire Shine", items[0].Name)
	require.Equal(t, 1, pagination.Total)

	_, _, err = svc.List(context.Background(), "unknown", 1, 25)
	require.ErrorIs(t, err, shared.ErrValidation)
}
