package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/glintcare/glintcare/internal/shared"
)

// CreateInput describes a new payment.
type CreateInput struct {
	CustomerID int64
	InvoiceID  *int64
	Amount     float64
	Method     string
	Note       string
	CreatedBy  int64
}

// RepositoryPort defines data access for payments.
type RepositoryPort interface {
	Create(ctx context.Context, p Payment) (Payment, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Payment, int, error)
}

// CacheBumper invalidates derived report caches after sales writes.
type CacheBumper interface {
	Invalidate(ctx context.Context) error
}

// Service handles payment business logic.
type Service struct {
	repo RepositoryPort
	bump CacheBumper
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, bump CacheBumper) *Service {
	return &Service{repo: repo, bump: bump}
}

// Create records a payment. Amounts must be strictly positive; zero and
// negative payments are rejected before any write happens.
func (s *Service) Create(ctx context.Context, input CreateInput) (Payment, error) {
	if input.CustomerID <= 0 {
		return Payment{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return Payment{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = "cash"
	}
	p := Payment{
		CustomerID: input.CustomerID,
		InvoiceID:  input.InvoiceID,
		Amount:     input.Amount,
		Method:     method,
		Note:       input.Note,
		Type:       TypeAccount,
		CreatedBy:  input.CreatedBy,
	}
	if input.InvoiceID != nil {
		p.Type = TypeInvoice
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Payment{}, err
	}
	if s.bump != nil {
		// Best effort: stale report caches expire on their own TTL.
		_ = s.bump.Invalidate(ctx)
	}
	return created, nil
}

// ListByCustomer returns a page of a customer's payments.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]Payment, shared.Pagination, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.ListByCustomer(ctx, customerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}
