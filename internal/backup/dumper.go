package backup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedTables guards against dumping anything outside the known schema;
// table names cannot be bound as SQL parameters.
var allowedTables = func() map[string]struct{} {
	out := make(map[string]struct{}, len(tableOrder))
	for _, t := range tableOrder {
		out[t] = struct{}{}
	}
	return out
}()

// Dumper reads whole tables through pgx into generic row maps.
type Dumper struct {
	pool *pgxpool.Pool
}

// NewDumper builds Dumper instance.
func NewDumper(pool *pgxpool.Pool) *Dumper {
	return &Dumper{pool: pool}
}

// DumpTable returns every row of the named table keyed by column name.
func (d *Dumper) DumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	if _, ok := allowedTables[table]; !ok {
		return nil, fmt.Errorf("backup: unknown table %q", table)
	}
	rows, err := d.pool.Query(ctx, `SELECT * FROM `+table+` ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
