package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/shared"
)

// LedgerPort records the earn side of an invoice inside its transaction.
type LedgerPort interface {
	RecordEarn(ctx context.Context, tx pgx.Tx, customerID, points, invoiceID, createdBy int64) error
}

// Repository provides pgx-backed invoice persistence.
type Repository struct {
	pool   *pgxpool.Pool
	ledger LedgerPort
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool, ledger LedgerPort) *Repository {
	return &Repository{pool: pool, ledger: ledger}
}

const invoiceColumns = `id, customer_id, total_amount, payment_method, status, points_earned,
	issued_at, due_at, paid_at, note, created_by, created_at`

// Create inserts the invoice, its items, the earn ledger entry and, for
// credit invoices, the credit balance increase, all in one transaction.
func (r *Repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (customer_id, total_amount, payment_method, status, points_earned,
				issued_at, due_at, paid_at, note, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			RETURNING id, created_at`,
			inv.CustomerID, inv.TotalAmount, inv.PaymentMethod, inv.Status, inv.PointsEarned,
			inv.IssuedAt, inv.DueAt, inv.PaidAt, inv.Note, inv.CreatedBy).
			Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, line_total, points_earned)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				item.InvoiceID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal, item.PointsEarned).
				Scan(&item.ID)
			if err != nil {
				return err
			}
		}

		if inv.PointsEarned > 0 {
			if err := r.ledger.RecordEarn(ctx, tx, inv.CustomerID, inv.PointsEarned, inv.ID, inv.CreatedBy); err != nil {
				return err
			}
		}

		if inv.PaymentMethod == MethodCredit {
			_, err = tx.Exec(ctx, `
				UPDATE customers
				SET credit_balance = credit_balance + $2, updated_at = NOW()
				WHERE id = $1`, inv.CustomerID, inv.TotalAmount)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get fetches an invoice with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.CustomerID, &inv.TotalAmount, &inv.PaymentMethod, &inv.Status, &inv.PointsEarned,
			&inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.Note, &inv.CreatedBy, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, unit_price, line_total, points_earned
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &item.PointsEarned); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// List returns a filtered page of invoices without items.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Invoice, int, error) {
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
	if filter.CustomerID > 0 {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Method != "" {
		add("payment_method = $%d", filter.Method)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+invoiceColumns+` FROM invoices%s ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.TotalAmount, &inv.PaymentMethod, &inv.Status, &inv.PointsEarned,
			&inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.Note, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// MarkOverdue flips unsettled credit invoices whose due date plus grace has
// passed. Paid invoices are never touched.
func (r *Repository) MarkOverdue(ctx context.Context, graceDays int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET status = $1
		WHERE payment_method = $2
		  AND status IN ($3, $4)
		  AND due_at IS NOT NULL
		  AND due_at + make_interval(days => $5) < NOW()`,
		StatusOverdue, MethodCredit, StatusUnpaid, StatusPartial, graceDays)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
