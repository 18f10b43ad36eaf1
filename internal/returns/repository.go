package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/shared"
)

// Repository provides pgx-backed return persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const returnColumns = `id, customer_id, invoice_id, status, note, created_by, created_at, updated_at`

// Create validates the per-product bound against the invoice held FOR
// UPDATE, then inserts the return and its items. The invoice lock keeps two
// overlapping requests from together returning more than was sold.
func (r *Repository) Create(ctx context.Context, ret Return) (Return, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var customerID int64
		err := tx.QueryRow(ctx, `SELECT customer_id FROM invoices WHERE id = $1 FOR UPDATE`, ret.InvoiceID).
			Scan(&customerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, ret.InvoiceID)
		}
		if err != nil {
			return err
		}
		if customerID != ret.CustomerID {
			return fmt.Errorf("%w: invoice belongs to another customer", shared.ErrValidation)
		}

		invoiced, err := quantitiesByProduct(ctx, tx, `
			SELECT product_id, SUM(quantity) FROM invoice_items WHERE invoice_id = $1 GROUP BY product_id`, ret.InvoiceID)
		if err != nil {
			return err
		}
		returned, err := quantitiesByProduct(ctx, tx, `
			SELECT ri.product_id, SUM(ri.quantity)
			FROM return_items ri
			JOIN returns r ON r.id = ri.return_id
			WHERE r.invoice_id = $1 AND r.status IN ('pending', 'approved')
			GROUP BY ri.product_id`, ret.InvoiceID)
		if err != nil {
			return err
		}
		requested := make(map[int64]int64, len(ret.Items))
		for _, item := range ret.Items {
			requested[item.ProductID] += item.Quantity
		}
		if err := ValidateQuantities(requested, invoiced, returned); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO returns (customer_id, invoice_id, status, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			ret.CustomerID, ret.InvoiceID, StatusPending, ret.Note, ret.CreatedBy).
			Scan(&ret.ID, &ret.CreatedAt, &ret.UpdatedAt)
		if err != nil {
			return err
		}
		ret.Status = StatusPending

		for i := range ret.Items {
			item := &ret.Items[i]
			item.ReturnID = ret.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO return_items (return_id, product_id, quantity)
				VALUES ($1, $2, $3)
				RETURNING id`, item.ReturnID, item.ProductID, item.Quantity).
				Scan(&item.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

func quantitiesByProduct(ctx context.Context, tx pgx.Tx, query string, invoiceID int64) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

// Decide moves a pending return to approved or rejected.
func (r *Repository) Decide(ctx context.Context, id int64, status string) (Return, error) {
	var ret Return
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM returns WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !CanDecide(current) {
			return fmt.Errorf("%w: return already %s", shared.ErrConflict, current)
		}
		return tx.QueryRow(ctx, `
			UPDATE returns SET status = $2, updated_at = NOW() WHERE id = $1
			RETURNING `+returnColumns, id, status).
			Scan(&ret.ID, &ret.CustomerID, &ret.InvoiceID, &ret.Status, &ret.Note, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	})
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}

// Get fetches a return with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Return, error) {
	var ret Return
	err := r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns WHERE id = $1`, id).
		Scan(&ret.ID, &ret.CustomerID, &ret.InvoiceID, &ret.Status, &ret.Note, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Return{}, shared.ErrNotFound
	}
	if err != nil {
		return Return{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, return_id, product_id, quantity FROM return_items WHERE return_id = $1 ORDER BY id`, id)
	if err != nil {
		return Return{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ReturnID, &item.ProductID, &item.Quantity); err != nil {
			return Return{}, err
		}
		ret.Items = append(ret.Items, item)
	}
	return ret, rows.Err()
}

// List returns a filtered page of returns without items.
func (r *Repository) List(ctx context.Context, customerID int64, status string, limit, offset int) ([]Return, int, error) {
	where := ""
	args := []any{}
	add := func(clause string, value any) {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}
	if customerID > 0 {
		add("customer_id = $%d", customerID)
	}
	if status != "" {
		add("status = $%d", status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM returns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+returnColumns+` FROM returns%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Return
	for rows.Next() {
		var ret Return
		if err := rows.Scan(&ret.ID, &ret.CustomerID, &ret.InvoiceID, &ret.Status, &ret.Note, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, ret)
	}
	return out, total, rows.Err()
}
