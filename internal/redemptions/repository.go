package redemptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/shared"
)

// LedgerPort is the slice of the loyalty repository a redemption needs: the
// locked counter read for in-transaction re-validation and the two ledger
// mutations.
type LedgerPort interface {
	LockCounters(ctx context.Context, tx pgx.Tx, customerID int64) (loyalty.Counters, error)
	UnsettledInvoices(ctx context.Context, tx pgx.Tx, customerID int64) (int, error)
	RecordRedemption(ctx context.Context, tx pgx.Tx, customerID, points, redemptionID, createdBy int64) error
	RecordRedemptionReversal(ctx context.Context, tx pgx.Tx, customerID, points, redemptionID, createdBy int64) error
}

// Repository provides pgx-backed redemption persistence.
type Repository struct {
	pool   *pgxpool.Pool
	ledger LedgerPort
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool, ledger LedgerPort) *Repository {
	return &Repository{pool: pool, ledger: ledger}
}

const redemptionColumns = `id, customer_id, status, total_points, note, created_by, created_at, updated_at`

// Create re-validates eligibility against the customer row held FOR UPDATE,
// then inserts the redemption, its items and the ledger effect. The lock
// serializes concurrent redemptions for the same customer, so two requests
// cannot both pass the balance check.
func (r *Repository) Create(ctx context.Context, red Redemption) (Redemption, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		counters, err := r.ledger.LockCounters(ctx, tx, red.CustomerID)
		if err != nil {
			return err
		}
		if counters.CurrentPoints <= 0 {
			return fmt.Errorf("%w: no points available", shared.ErrNotEligible)
		}
		unsettled, err := r.ledger.UnsettledInvoices(ctx, tx, red.CustomerID)
		if err != nil {
			return err
		}
		if unsettled > 0 {
			return fmt.Errorf("%w: customer has unpaid invoices", shared.ErrNotEligible)
		}
		if counters.CurrentPoints < red.TotalPoints {
			return fmt.Errorf("%w: balance %d is below %d", shared.ErrNotEligible, counters.CurrentPoints, red.TotalPoints)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO redemptions (customer_id, status, total_points, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			red.CustomerID, StatusPending, red.TotalPoints, red.Note, red.CreatedBy).
			Scan(&red.ID, &red.CreatedAt, &red.UpdatedAt)
		if err != nil {
			return err
		}
		red.Status = StatusPending

		for i := range red.Items {
			item := &red.Items[i]
			item.RedemptionID = red.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO redemption_items (redemption_id, product_id, quantity, points_each, points_total)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				item.RedemptionID, item.ProductID, item.Quantity, item.PointsEach, item.PointsTotal).
				Scan(&item.ID)
			if err != nil {
				return err
			}
		}

		return r.ledger.RecordRedemption(ctx, tx, red.CustomerID, red.TotalPoints, red.ID, red.CreatedBy)
	})
	if err != nil {
		return Redemption{}, err
	}
	return red, nil
}

// Complete moves a pending redemption to completed. No balance effect; the
// points were already taken at creation.
func (r *Repository) Complete(ctx context.Context, id, actor int64) (Redemption, error) {
	var red Redemption
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanComplete(current.Status) {
			return fmt.Errorf("%w: cannot complete a %s redemption", shared.ErrConflict, current.Status)
		}
		return tx.QueryRow(ctx, `
			UPDATE redemptions SET status = $2, updated_at = NOW() WHERE id = $1
			RETURNING `+redemptionColumns, id, StatusCompleted).
			Scan(&red.ID, &red.CustomerID, &red.Status, &red.TotalPoints, &red.Note, &red.CreatedBy, &red.CreatedAt, &red.UpdatedAt)
	})
	if err != nil {
		return Redemption{}, err
	}
	return red, nil
}

// Cancel moves a pending redemption to cancelled and reverses its points
// through the ledger in the same transaction.
func (r *Repository) Cancel(ctx context.Context, id, actor int64) (Redemption, error) {
	var red Redemption
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanCancel(current.Status) {
			return fmt.Errorf("%w: cannot cancel a %s redemption", shared.ErrConflict, current.Status)
		}
		err = tx.QueryRow(ctx, `
			UPDATE redemptions SET status = $2, updated_at = NOW() WHERE id = $1
			RETURNING `+redemptionColumns, id, StatusCancelled).
			Scan(&red.ID, &red.CustomerID, &red.Status, &red.TotalPoints, &red.Note, &red.CreatedBy, &red.CreatedAt, &red.UpdatedAt)
		if err != nil {
			return err
		}
		return r.ledger.RecordRedemptionReversal(ctx, tx, red.CustomerID, red.TotalPoints, red.ID, actor)
	})
	if err != nil {
		return Redemption{}, err
	}
	return red, nil
}

// Delete removes a cancelled redemption and its items.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := r.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanDelete(current.Status) {
			return fmt.Errorf("%w: only cancelled redemptions can be deleted", shared.ErrConflict)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM redemption_items WHERE redemption_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM redemptions WHERE id = $1`, id)
		return err
	})
}

func (r *Repository) lock(ctx context.Context, tx pgx.Tx, id int64) (Redemption, error) {
	var red Redemption
	err := tx.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1 FOR UPDATE`, id).
		Scan(&red.ID, &red.CustomerID, &red.Status, &red.TotalPoints, &red.Note, &red.CreatedBy, &red.CreatedAt, &red.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Redemption{}, shared.ErrNotFound
	}
	return red, err
}

// Get fetches a redemption with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Redemption, error) {
	var red Redemption
	err := r.pool.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1`, id).
		Scan(&red.ID, &red.CustomerID, &red.Status, &red.TotalPoints, &red.Note, &red.CreatedBy, &red.CreatedAt, &red.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Redemption{}, shared.ErrNotFound
	}
	if err != nil {
		return Redemption{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, redemption_id, product_id, quantity, points_each, points_total
		FROM redemption_items WHERE redemption_id = $1 ORDER BY id`, id)
	if err != nil {
		return Redemption{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.RedemptionID, &item.ProductID, &item.Quantity, &item.PointsEach, &item.PointsTotal); err != nil {
			return Redemption{}, err
		}
		red.Items = append(red.Items, item)
	}
	return red, rows.Err()
}

// List returns a filtered page of redemptions without items.
func (r *Repository) List(ctx context.Context, customerID int64, status string, limit, offset int) ([]Redemption, int, error) {
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM redemptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+redemptionColumns+` FROM redemptions%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Redemption
	for rows.Next() {
		var red Redemption
		if err := rows.Scan(&red.ID, &red.CustomerID, &red.Status, &red.TotalPoints, &red.Note, &red.CreatedBy, &red.CreatedAt, &red.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, red)
	}
	return out, total, rows.Err()
}
