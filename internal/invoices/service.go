package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

// CreateInput describes a new invoice.
type CreateInput struct {
	CustomerID    int64
	PaymentMethod string
	Note          string
	Lines         []LineInput
	CreatedBy     int64
}

// LineInput is one requested invoice line.
type LineInput struct {
	ProductID int64
	Quantity  int64
}

// RepositoryPort defines data access for invoices.
type RepositoryPort interface {
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Invoice, int, error)
	MarkOverdue(ctx context.Context, graceDays int) (int, error)
}

// CatalogPort supplies product pricing and point configuration.
type CatalogPort interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]products.Product, error)
}

// CustomerPort supplies the credit terms needed to derive due dates.
type CustomerPort interface {
	CreditPeriod(ctx context.Context, customerID int64) (int, error)
}

// CacheBumper invalidates derived report caches after sales writes.
type CacheBumper interface {
	Invalidate(ctx context.Context) error
}

// Service handles invoicing business logic.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	customers CustomerPort
	bump      CacheBumper
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog CatalogPort, customers CustomerPort, bump CacheBumper) *Service {
	return &Service{repo: repo, catalog: catalog, customers: customers, bump: bump, now: time.Now}
}

// Create prices the requested lines from the catalog, computes earned
// points, and persists the invoice together with its ledger effect.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.CustomerID <= 0 {
		return Invoice{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.PaymentMethod != MethodCash && input.PaymentMethod != MethodCredit {
		return Invoice{}, fmt.Errorf("%w: payment method must be cash or credit", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Invoice{}, fmt.Errorf("%w: at least one line required", shared.ErrValidation)
	}
	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Invoice{}, fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
		}
		ids = append(ids, line.ProductID)
	}

	catalog, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return Invoice{}, err
	}

	inv := priceInvoice(input, catalog, s.now())

	if input.PaymentMethod == MethodCredit {
		period, err := s.customers.CreditPeriod(ctx, input.CustomerID)
		if err != nil {
			return Invoice{}, err
		}
		if period > 0 {
			due := inv.IssuedAt.AddDate(0, 0, period)
			inv.DueAt = &due
		}
	}

	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	if s.bump != nil {
		// Best effort: the write stands even if the report cache keeps
		// serving the previous version until its TTL.
		_ = s.bump.Invalidate(ctx)
	}
	return created, nil
}

// priceInvoice derives totals and earned points from catalog configuration.
// Cash invoices are settled immediately; credit invoices start unpaid.
func priceInvoice(input CreateInput, catalog map[int64]products.Product, now time.Time) Invoice {
	inv := Invoice{
		CustomerID:    input.CustomerID,
		PaymentMethod: input.PaymentMethod,
		Status:        StatusUnpaid,
		IssuedAt:      now,
		Note:          input.Note,
		CreatedBy:     input.CreatedBy,
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		product := catalog[line.ProductID]
		lineTotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(lineTotal)
		points := product.PointsEarned * line.Quantity
		inv.PointsEarned += points
		inv.Items = append(inv.Items, Item{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitPrice:    product.Price,
			LineTotal:    lineTotal.InexactFloat64(),
			PointsEarned: points,
		})
	}
	inv.TotalAmount = total.InexactFloat64()

	if input.PaymentMethod == MethodCash {
		inv.Status = StatusPaid
		paidAt := now
		inv.PaidAt = &paidAt
	}
	return inv
}

// Get fetches an invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of invoices.
func (s *Service) List(ctx context.Context, filter ListFilter, page, perPage int) ([]Invoice, shared.Pagination, error) {
	if filter.Status != "" {
		switch filter.Status {
		case StatusUnpaid, StatusPartial, StatusPaid, StatusOverdue:
		default:
			return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filter.Status)
		}
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	if page <= 0 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// MarkOverdue flips unsettled credit invoices past their due date (plus the
// configured grace) to overdue. Returns the number marked.
func (s *Service) MarkOverdue(ctx context.Context, graceDays int) (int, error) {
	if graceDays < 0 {
		graceDays = 0
	}
	return s.repo.MarkOverdue(ctx, graceDays)
}
