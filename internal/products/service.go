package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/glintcare/glintcare/internal/shared"
)

// RepositoryPort defines data access methods for products.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]Product, error)
	List(ctx context.Context, category Category, limit, offset int) ([]Product, int, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles product catalog logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if !ValidCategory(p.Category) {
		return fmt.Errorf("%w: unknown category %q", shared.ErrValidation, p.Category)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	}
	if p.PointsEarned < 0 || p.PointsRequired < 0 {
		return fmt.Errorf("%w: point values must not be negative", shared.ErrValidation)
	}
	return nil
}

// Create adds a product to the catalog.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, p)
}

// Get fetches a product by ID.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of products with the pagination envelope.
func (s *Service) List(ctx context.Context, category Category, page, perPage int) ([]Product, shared.Pagination, error) {
	if category != "" && !ValidCategory(category) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown category %q", shared.ErrValidation, category)
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, category, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Update rewrites a product.
func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return Product{}, err
	}
	return s.repo.Update(ctx, p)
}

// Delete removes an unreferenced product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
