package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the points ledger
// and the denormalized customer counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertEntrySQL = `
	INSERT INTO points_history (id, customer_id, points, type, source, source_id, note, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// RecordEarn appends an earn entry and bumps the customer counters inside
// the caller's transaction. The counter update is a single server-side
// expression so concurrent writers cannot lose increments, and
// current_points stays equal to points_earned - points_redeemed.
func (r *Repository) RecordEarn(ctx context.Context, tx pgx.Tx, customerID, points, invoiceID, createdBy int64) error {
	if points <= 0 {
		return fmt.Errorf("%w: earned points must be positive", shared.ErrValidation)
	}
	_, err := tx.Exec(ctx, insertEntrySQL,
		uuid.NewString(), customerID, points, EntryEarned, SourceInvoice, invoiceID, "", createdBy, time.Now())
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE customers
		SET points_earned = points_earned + $2,
		    current_points = points_earned + $2 - points_redeemed,
		    updated_at = NOW()
		WHERE id = $1`, customerID, points)
	return err
}

// RecordRedemption appends a redeem entry (negative delta) and increments
// points_redeemed inside the caller's transaction.
func (r *Repository) RecordRedemption(ctx context.Context, tx pgx.Tx, customerID, points, redemptionID, createdBy int64) error {
	if points <= 0 {
		return fmt.Errorf("%w: redeemed points must be positive", shared.ErrValidation)
	}
	_, err := tx.Exec(ctx, insertEntrySQL,
		uuid.NewString(), customerID, -points, EntryRedeemed, SourceRedemption, redemptionID, "", createdBy, time.Now())
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE customers
		SET points_redeemed = points_redeemed + $2,
		    current_points = points_earned - points_redeemed - $2,
		    updated_at = NOW()
		WHERE id = $1`, customerID, points)
	return err
}

// RecordRedemptionReversal restores points for a cancelled redemption.
func (r *Repository) RecordRedemptionReversal(ctx context.Context, tx pgx.Tx, customerID, points, redemptionID, createdBy int64) error {
	if points <= 0 {
		return fmt.Errorf("%w: reversed points must be positive", shared.ErrValidation)
	}
	_, err := tx.Exec(ctx, insertEntrySQL,
		uuid.NewString(), customerID, points, EntryRedeemed, SourceRedemption, redemptionID, "redemption cancelled", createdBy, time.Now())
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE customers
		SET points_redeemed = points_redeemed - $2,
		    current_points = points_earned - points_redeemed + $2,
		    updated_at = NOW()
		WHERE id = $1`, customerID, points)
	return err
}

// Adjust applies a manual point adjustment in its own transaction. Positive
// deltas add to points_earned, negative deltas to points_redeemed, keeping
// the ledger signs and the counters consistent.
func (r *Repository) Adjust(ctx context.Context, input AdjustmentInput) (*Entry, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		CustomerID: input.CustomerID,
		Points:     input.Points,
		Source:     SourceManualAdjustment,
		Note:       input.Note,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  time.Now(),
	}
	if input.Points > 0 {
		entry.Type = EntryManualAdd
	} else {
		entry.Type = EntryManualDeduct
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertEntrySQL,
			entry.ID, entry.CustomerID, entry.Points, entry.Type, entry.Source, nil, entry.Note, entry.CreatedBy, entry.CreatedAt)
		if err != nil {
			return err
		}
		if entry.Points > 0 {
			_, err = tx.Exec(ctx, `
				UPDATE customers
				SET points_earned = points_earned + $2,
				    current_points = points_earned + $2 - points_redeemed,
				    updated_at = NOW()
				WHERE id = $1`, entry.CustomerID, entry.Points)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE customers
				SET points_redeemed = points_redeemed + $2,
				    current_points = points_earned - points_redeemed - $2,
				    updated_at = NOW()
				WHERE id = $1`, entry.CustomerID, -entry.Points)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// History lists ledger entries for a customer, newest first.
func (r *Repository) History(ctx context.Context, customerID int64, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, points, type, source, COALESCE(source_id, 0), note, created_by, created_at
		FROM points_history
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Points, &e.Type, &e.Source, &e.SourceID, &e.Note, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const countersSQL = `
	SELECT points_earned, points_redeemed, current_points, credit_balance, opening_balance
	FROM customers
	WHERE id = $1`

// Counters reads the denormalized loyalty fields for a customer.
func (r *Repository) Counters(ctx context.Context, customerID int64) (Counters, error) {
	var c Counters
	err := r.pool.QueryRow(ctx, countersSQL, customerID).
		Scan(&c.PointsEarned, &c.PointsRedeemed, &c.CurrentPoints, &c.CreditBalance, &c.OpeningBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counters{}, shared.ErrNotFound
	}
	return c, err
}

// LockCounters reads the counters under FOR UPDATE inside the caller's
// transaction; writers re-validating eligibility at commit time use this to
// serialize against concurrent redemptions.
func (r *Repository) LockCounters(ctx context.Context, tx pgx.Tx, customerID int64) (Counters, error) {
	var c Counters
	err := tx.QueryRow(ctx, countersSQL+" FOR UPDATE", customerID).
		Scan(&c.PointsEarned, &c.PointsRedeemed, &c.CurrentPoints, &c.CreditBalance, &c.OpeningBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counters{}, shared.ErrNotFound
	}
	return c, err
}

// UnsettledInvoices counts invoices not fully paid, inside the caller's
// transaction when tx is non-nil.
func (r *Repository) UnsettledInvoices(ctx context.Context, tx pgx.Tx, customerID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM invoices WHERE customer_id = $1 AND status IN ('unpaid', 'partial', 'overdue')`
	var count int
	var err error
	if tx != nil {
		err = tx.QueryRow(ctx, q, customerID).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, q, customerID).Scan(&count)
	}
	return count, err
}

// InvoiceViews loads the validated invoice shapes for one customer.
func (r *Repository) InvoiceViews(ctx context.Context, customerID int64) ([]InvoiceView, error) {
	views, err := r.invoiceViews(ctx, &customerID)
	if err != nil {
		return nil, err
	}
	return views[customerID], nil
}

// ActivityByCustomer loads invoice views for the whole population, used by
// batch tier refresh and reconciliation.
func (r *Repository) ActivityByCustomer(ctx context.Context) (map[int64][]InvoiceView, error) {
	return r.invoiceViews(ctx, nil)
}

func (r *Repository) invoiceViews(ctx context.Context, customerID *int64) (map[int64][]InvoiceView, error) {
	query := `
		SELECT i.id, i.customer_id, i.total_amount, i.payment_method, i.status, i.issued_at, i.due_at, i.paid_at
		FROM invoices i`
	args := []any{}
	if customerID != nil {
		query += " WHERE i.customer_id = $1"
		args = append(args, *customerID)
	}
	query += " ORDER BY i.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make(map[int64][]InvoiceView)
	index := make(map[int64]int) // invoice id -> position within its customer slice
	owners := make(map[int64]int64)
	for rows.Next() {
		var (
			id, custID int64
			total      float64
			method     string
			status     string
			issuedAt   time.Time
			dueAt      *time.Time
			paidAt     *time.Time
		)
		if err := rows.Scan(&id, &custID, &total, &method, &status, &issuedAt, &dueAt, &paidAt); err != nil {
			return nil, err
		}
		view := InvoiceView{
			ID:       id,
			Total:    total,
			Credit:   method == "credit",
			Settled:  status == "paid",
			IssuedAt: issuedAt,
		}
		if view.Settled && paidAt != nil {
			view.OnTime = dueAt == nil || !paidAt.After(*dueAt)
		}
		index[id] = len(views[custID])
		owners[id] = custID
		views[custID] = append(views[custID], view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach the distinct product categories purchased on each invoice.
	catQuery := `
		SELECT DISTINCT ii.invoice_id, p.category
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id`
	catArgs := []any{}
	if customerID != nil {
		catQuery += ` JOIN invoices i ON i.id = ii.invoice_id WHERE i.customer_id = $1`
		catArgs = append(catArgs, *customerID)
	}
	catRows, err := r.pool.Query(ctx, catQuery, catArgs...)
	if err != nil {
		return nil, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var invoiceID int64
		var category products.Category
		if err := catRows.Scan(&invoiceID, &category); err != nil {
			return nil, err
		}
		custID, ok := owners[invoiceID]
		if !ok {
			continue
		}
		pos := index[invoiceID]
		views[custID][pos].Categories = append(views[custID][pos].Categories, category)
	}
	return views, catRows.Err()
}

// PaymentViews loads validated payment shapes for one customer.
func (r *Repository) PaymentViews(ctx context.Context, customerID int64) ([]PaymentView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, amount FROM payments WHERE customer_id = $1 ORDER BY id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []PaymentView
	for rows.Next() {
		var v PaymentView
		if err := rows.Scan(&v.ID, &v.InvoiceID, &v.Amount); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// PaymentViewsByCustomer loads validated payment shapes for the whole
// population, for reconciliation.
func (r *Repository) PaymentViewsByCustomer(ctx context.Context) (map[int64][]PaymentView, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, invoice_id, amount FROM payments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make(map[int64][]PaymentView)
	for rows.Next() {
		var (
			id, custID int64
			invoiceID  *int64
			amount     float64
		)
		if err := rows.Scan(&id, &custID, &invoiceID, &amount); err != nil {
			return nil, err
		}
		views[custID] = append(views[custID], PaymentView{ID: id, InvoiceID: invoiceID, Amount: amount})
	}
	return views, rows.Err()
}

// LedgerSum aggregates a customer's ledger into cumulative counters.
type LedgerSum struct {
	Earned   int64
	Redeemed int64
}

// LedgerSumsByCustomer recomputes cumulative counters from the ledger.
// Entries are split by type, not sign: a cancelled redemption appends a
// positive entry of type 'redeemed', and the signed sum over that type nets
// the spend and its reversal so the recomputed counters match what the
// atomic updates left behind.
func (r *Repository) LedgerSumsByCustomer(ctx context.Context) (map[int64]LedgerSum, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id,
		       COALESCE(SUM(points) FILTER (WHERE type IN ('earned', 'manual_add')), 0),
		       COALESCE(-SUM(points) FILTER (WHERE type IN ('redeemed', 'manual_deduct')), 0)
		FROM points_history
		GROUP BY customer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[int64]LedgerSum)
	for rows.Next() {
		var customerID int64
		var sum LedgerSum
		if err := rows.Scan(&customerID, &sum.Earned, &sum.Redeemed); err != nil {
			return nil, err
		}
		sums[customerID] = sum
	}
	return sums, rows.Err()
}

// CountersByCustomer reads the denormalized fields for the population.
func (r *Repository) CountersByCustomer(ctx context.Context) (map[int64]Counters, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, points_earned, points_redeemed, current_points, credit_balance, opening_balance
		FROM customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := make(map[int64]Counters)
	for rows.Next() {
		var customerID int64
		var c Counters
		if err := rows.Scan(&customerID, &c.PointsEarned, &c.PointsRedeemed, &c.CurrentPoints, &c.CreditBalance, &c.OpeningBalance); err != nil {
			return nil, err
		}
		counters[customerID] = c
	}
	return counters, rows.Err()
}

// UpdateTiers stores a freshly computed level and classification.
func (r *Repository) UpdateTiers(ctx context.Context, customerID int64, level, classification int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers SET level = $2, classification = $3, updated_at = NOW() WHERE id = $1`,
		customerID, level, classification)
	return err
}
