package returns

import (
	"context"
	"fmt"

	"github.com/glintcare/glintcare/internal/shared"
)

// CreateInput describes a new return request.
type CreateInput struct {
	CustomerID int64
	InvoiceID  int64
	Note       string
	Lines      []LineInput
	CreatedBy  int64
}

// LineInput is one requested return line.
type LineInput struct {
	ProductID int64
	Quantity  int64
}

// RepositoryPort defines data access for returns.
type RepositoryPort interface {
	Create(ctx context.Context, ret Return) (Return, error)
	Get(ctx context.Context, id int64) (Return, error)
	List(ctx context.Context, customerID int64, status string, limit, offset int) ([]Return, int, error)
	Decide(ctx context.Context, id int64, status string) (Return, error)
}

// Service handles return business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create submits a return request; the quantity bound is enforced against
// the invoice inside the repository transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (Return, error) {
	if input.CustomerID <= 0 {
		return Return{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.InvoiceID <= 0 {
		return Return{}, fmt.Errorf("%w: invoice id required", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Return{}, fmt.Errorf("%w: at least one line required", shared.ErrValidation)
	}
	ret := Return{
		CustomerID: input.CustomerID,
		InvoiceID:  input.InvoiceID,
		Status:     StatusPending,
		Note:       input.Note,
		CreatedBy:  input.CreatedBy,
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Return{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		ret.Items = append(ret.Items, Item{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return s.repo.Create(ctx, ret)
}

// Get fetches a return.
func (s *Service) Get(ctx context.Context, id int64) (Return, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of returns.
func (s *Service) List(ctx context.Context, customerID int64, status string, page, perPage int) ([]Return, shared.Pagination, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusApproved, StatusRejected:
		default:
			return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
		}
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, customerID, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Approve accepts a pending return.
func (s *Service) Approve(ctx context.Context, id int64) (Return, error) {
	return s.repo.Decide(ctx, id, StatusApproved)
}

// Reject declines a pending return; its quantities stop counting against the
// bound.
func (s *Service) Reject(ctx context.Context, id int64) (Return, error) {
	return s.repo.Decide(ctx, id, StatusRejected)
}
