package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/shared"
)

const customerColumns = `id, name, contact_person, phone, business_type, governorate, city,
	opening_balance, credit_balance, credit_period, credit_limit,
	points_earned, points_redeemed, current_points,
	level, classification, is_active, created_at, updated_at`

// Repository provides pgx-backed access to customer records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a customer. Counters start at zero; opening_balance is the
// only balance seeded at creation.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, contact_person, phone, business_type, governorate, city,
			opening_balance, credit_balance, credit_period, credit_limit,
			points_earned, points_redeemed, current_points,
			level, classification, is_active, search_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, 0, 0, 0, 1, 0, TRUE, $10, NOW(), NOW())
		RETURNING `+customerColumns,
		c.Name, c.ContactPerson, c.Phone, c.BusinessType, c.Governorate, c.City,
		c.OpeningBalance, c.CreditPeriod, c.CreditLimit, searchText(c))
	return scanCustomer(row)
}

// Get fetches a customer by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// List returns a page of customers, optionally filtered by a normalized
// search term matched as a substring of the stored search text.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	where := ""
	args := []any{}
	if term := NormalizeSearch(search); term != "" {
		where = ` WHERE search_text LIKE $1`
		args = append(args, "%"+term+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+customerColumns+` FROM customers%s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update rewrites the editable profile fields and refreshes the search text.
func (r *Repository) Update(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, contact_person = $3, phone = $4, business_type = $5,
		    governorate = $6, city = $7, credit_period = $8, credit_limit = $9,
		    search_text = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+customerColumns,
		c.ID, c.Name, c.ContactPerson, c.Phone, c.BusinessType,
		c.Governorate, c.City, c.CreditPeriod, c.CreditLimit, searchText(c))
	return scanCustomer(row)
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreditPeriod returns the customer's payment term in days.
func (r *Repository) CreditPeriod(ctx context.Context, id int64) (int, error) {
	var period int
	err := r.pool.QueryRow(ctx, `SELECT credit_period FROM customers WHERE id = $1`, id).Scan(&period)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return period, err
}

// HasActivity reports whether the customer owns invoices, payments or ledger
// entries. Customers with activity are deactivated rather than deleted.
func (r *Repository) HasActivity(ctx context.Context, id int64) (bool, error) {
	var has bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM invoices WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM payments WHERE customer_id = $1)
		    OR EXISTS (SELECT 1 FROM points_history WHERE customer_id = $1)`, id).Scan(&has)
	return has, err
}

// Delete removes a customer with no activity.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Phone, &c.BusinessType, &c.Governorate, &c.City,
		&c.OpeningBalance, &c.CreditBalance, &c.CreditPeriod, &c.CreditLimit,
		&c.PointsEarned, &c.PointsRedeemed, &c.CurrentPoints,
		&c.Level, &c.Classification, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}
