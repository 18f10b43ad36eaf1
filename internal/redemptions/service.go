package redemptions

import (
	"context"
	"fmt"

	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

// CreateInput describes a new redemption request.
type CreateInput struct {
	CustomerID     int64
	Note           string
	Lines          []LineInput
	IdempotencyKey string
	CreatedBy      int64
}

// LineInput is one requested redemption line.
type LineInput struct {
	ProductID int64
	Quantity  int64
}

// RepositoryPort defines data access for redemptions.
type RepositoryPort interface {
	Create(ctx context.Context, red Redemption) (Redemption, error)
	Get(ctx context.Context, id int64) (Redemption, error)
	List(ctx context.Context, customerID int64, status string, limit, offset int) ([]Redemption, int, error)
	Complete(ctx context.Context, id, actor int64) (Redemption, error)
	Cancel(ctx context.Context, id, actor int64) (Redemption, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogPort supplies redemption point configuration.
type CatalogPort interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// IdempotencyPort guards duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// Service handles redemption business logic.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	idempotency IdempotencyPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog CatalogPort, idempotency IdempotencyPort) *Service {
	return &Service{repo: repo, catalog: catalog, idempotency: idempotency}
}

// Create builds the redemption from catalog point configuration and persists
// it. An Idempotency-Key, when present, is consumed before any write so a
// double submission surfaces as a conflict instead of a second spend.
func (s *Service) Create(ctx context.Context, input CreateInput) (Redemption, error) {
	if input.CustomerID <= 0 {
		return Redemption{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Redemption{}, fmt.Errorf("%w: at least one line required", shared.ErrValidation)
	}
	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Redemption{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		ids = append(ids, line.ProductID)
	}

	catalog, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return Redemption{}, err
	}

	red := Redemption{
		CustomerID: input.CustomerID,
		Status:     StatusPending,
		Note:       input.Note,
		CreatedBy:  input.CreatedBy,
	}
	for _, line := range input.Lines {
		product := catalog[line.ProductID]
		if product.PointsRequired <= 0 {
			return Redemption{}, fmt.Errorf("%w: product %q is not redeemable", shared.ErrValidation, product.Name)
		}
		pointsTotal := product.PointsRequired * line.Quantity
		red.TotalPoints += pointsTotal
		red.Items = append(red.Items, Item{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PointsEach:  product.PointsRequired,
			PointsTotal: pointsTotal,
		})
	}
	if red.TotalPoints <= 0 {
		return Redemption{}, fmt.Errorf("%w: redemption must spend points", shared.ErrValidation)
	}

	if input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "redemptions"); err != nil {
			if err == shared.ErrIdempotencyConflict {
				return Redemption{}, fmt.Errorf("%w: duplicate redemption submission", shared.ErrConflict)
			}
			return Redemption{}, err
		}
	}

	return s.repo.Create(ctx, red)
}

// Get fetches a redemption.
func (s *Service) Get(ctx context.Context, id int64) (Redemption, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of redemptions.
func (s *Service) List(ctx context.Context, customerID int64, status string, page, perPage int) ([]Redemption, shared.Pagination, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusCompleted, StatusCancelled:
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

// Complete marks a pending redemption as handed over.
func (s *Service) Complete(ctx context.Context, id, actor int64) (Redemption, error) {
	return s.repo.Complete(ctx, id, actor)
}

// Cancel reverses a pending redemption.
func (s *Service) Cancel(ctx context.Context, id, actor int64) (Redemption, error) {
	return s.repo.Cancel(ctx, id, actor)
}

// Delete removes a cancelled redemption.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
