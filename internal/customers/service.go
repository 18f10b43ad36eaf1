package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/glintcare/glintcare/internal/shared"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	Create(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	SetActive(ctx context.Context, id int64, active bool) error
	HasActivity(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles customer business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return Customer{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if c.OpeningBalance < 0 {
		return Customer{}, fmt.Errorf("%w: opening balance must not be negative", shared.ErrValidation)
	}
	if c.CreditPeriod < 0 || c.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("%w: credit terms must not be negative", shared.ErrValidation)
	}
	return s.repo.Create(ctx, c)
}

// Get fetches a customer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of customers with the pagination envelope.
func (s *Service) List(ctx context.Context, search string, page, perPage int) ([]Customer, shared.Pagination, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Update rewrites the editable profile fields.
func (s *Service) Update(ctx context.Context, c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Customer{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	if c.CreditPeriod < 0 || c.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("%w: credit terms must not be negative", shared.ErrValidation)
	}
	return s.repo.Update(ctx, c)
}

// Deactivate retires a customer without touching its records.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated customer.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// Delete removes a customer. Customers with invoices, payments or ledger
// entries cannot be deleted; deactivate them instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	has, err := s.repo.HasActivity(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: customer has activity; deactivate instead", shared.ErrConflict)
	}
	return s.repo.Delete(ctx, id)
}
