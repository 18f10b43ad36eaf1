package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/invoices"
	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/shared"
)

// Repository provides pgx-backed payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the payment and, when linked to an invoice, recomputes the
// invoice status from the paid sum under a row lock and reduces the
// customer's credit balance for credit invoices. All in one transaction, so
// a failure leaves no partial state.
func (r *Repository) Create(ctx context.Context, p Payment) (Payment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if p.InvoiceID != nil {
			if err := r.applyToInvoice(ctx, tx, &p); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `
			INSERT INTO payments (customer_id, invoice_id, amount, method, note, type, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			RETURNING id, created_at`,
			p.CustomerID, p.InvoiceID, p.Amount, p.Method, p.Note, p.Type, p.CreatedBy).
			Scan(&p.ID, &p.CreatedAt)
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *Repository) applyToInvoice(ctx context.Context, tx pgx.Tx, p *Payment) error {
	var (
		customerID int64
		total      float64
		method     string
		status     string
	)
	err := tx.QueryRow(ctx, `
		SELECT customer_id, total_amount, payment_method, status
		FROM invoices WHERE id = $1 FOR UPDATE`, *p.InvoiceID).
		Scan(&customerID, &total, &method, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, *p.InvoiceID)
	}
	if err != nil {
		return err
	}
	if customerID != p.CustomerID {
		return fmt.Errorf("%w: invoice belongs to another customer", shared.ErrValidation)
	}
	if status == invoices.StatusPaid {
		return fmt.Errorf("%w: invoice already paid", shared.ErrConflict)
	}

	var paidSoFar float64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, *p.InvoiceID).
		Scan(&paidSoFar)
	if err != nil {
		return err
	}
	if paidSoFar+p.Amount > total+0.005 {
		return fmt.Errorf("%w: payment exceeds invoice balance", shared.ErrValidation)
	}

	newStatus := invoices.StatusPartial
	var paidAt *time.Time
	if paidSoFar+p.Amount >= total-0.005 {
		newStatus = invoices.StatusPaid
		now := time.Now()
		paidAt = &now
	}
	_, err = tx.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_at = $3 WHERE id = $1`,
		*p.InvoiceID, newStatus, paidAt)
	if err != nil {
		return err
	}

	if method == invoices.MethodCredit {
		_, err = tx.Exec(ctx, `
			UPDATE customers
			SET credit_balance = credit_balance - $2, updated_at = NOW()
			WHERE id = $1`, p.CustomerID, p.Amount)
	}
	return err
}

// ListByCustomer returns a page of a customer's payments, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, invoice_id, amount, method, note, type, created_by, created_at
		FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.InvoiceID, &p.Amount, &p.Method, &p.Note, &p.Type, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
