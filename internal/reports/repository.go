package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads the condensed sales activity the report builders consume.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Activities returns per-customer purchase history for active customers.
func (r *Repository) Activities(ctx context.Context) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, i.total_amount, i.issued_at
		FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		WHERE c.is_active
		ORDER BY c.id, i.issued_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCustomer := make(map[int64]*Activity)
	var order []int64
	for rows.Next() {
		var (
			id       int64
			name     string
			total    float64
			issuedAt time.Time
		)
		if err := rows.Scan(&id, &name, &total, &issuedAt); err != nil {
			return nil, err
		}
		a, ok := byCustomer[id]
		if !ok {
			a = &Activity{CustomerID: id, Name: name}
			byCustomer[id] = a
			order = append(order, id)
		}
		a.Total += total
		a.InvoiceDates = append(a.InvoiceDates, issuedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(order))
	for _, id := range order {
		out = append(out, *byCustomer[id])
	}
	return out, nil
}
