// Package settings stores the single operational configuration row: loyalty
// score weights, backup schedule and the overdue grace window.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/shared"
)

// Backup frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Settings is the singleton configuration row.
type Settings struct {
	WeightMonetary      float64   `json:"weight_monetary"`
	WeightFrequency     float64   `json:"weight_frequency"`
	WeightPoints        float64   `json:"weight_points"`
	WeightTimeliness    float64   `json:"weight_timeliness"`
	BackupFrequency     string    `json:"backup_frequency"`
	BackupRetentionDays int       `json:"backup_retention_days"`
	OverdueGraceDays    int       `json:"overdue_grace_days"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Defaults returns the configuration used before anyone saves settings.
func Defaults() Settings {
	w := loyalty.DefaultScoreWeights()
	return Settings{
		WeightMonetary:      w.Monetary,
		WeightFrequency:     w.Frequency,
		WeightPoints:        w.Points,
		WeightTimeliness:    w.Timeliness,
		BackupFrequency:     FrequencyDaily,
		BackupRetentionDays: 30,
		OverdueGraceDays:    3,
	}
}

// Weights converts the stored values into the loyalty weight struct.
func (s Settings) Weights() loyalty.ScoreWeights {
	return loyalty.ScoreWeights{
		Monetary:   s.WeightMonetary,
		Frequency:  s.WeightFrequency,
		Points:     s.WeightPoints,
		Timeliness: s.WeightTimeliness,
	}
}

func (s Settings) validate() error {
	if !s.Weights().Valid() {
		return fmt.Errorf("%w: score weights must be non-negative and sum to a positive value", shared.ErrValidation)
	}
	switch s.BackupFrequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: backup frequency must be daily, weekly or monthly", shared.ErrValidation)
	}
	if s.BackupRetentionDays < 1 {
		return fmt.Errorf("%w: retention must be at least one day", shared.ErrValidation)
	}
	if s.OverdueGraceDays < 0 {
		return fmt.Errorf("%w: overdue grace must not be negative", shared.ErrValidation)
	}
	return nil
}

const settingsColumns = `weight_monetary, weight_frequency, weight_points, weight_timeliness,
	backup_frequency, backup_retention_days, overdue_grace_days, updated_at`

// Store reads and writes the singleton row.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds Store instance.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load returns the stored settings, or the defaults when none were saved.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM settings WHERE id = 1`).
		Scan(&out.WeightMonetary, &out.WeightFrequency, &out.WeightPoints, &out.WeightTimeliness,
			&out.BackupFrequency, &out.BackupRetentionDays, &out.OverdueGraceDays, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(), nil
	}
	return out, err
}

// Save validates and upserts the settings row.
func (s *Store) Save(ctx context.Context, in Settings) (Settings, error) {
	if err := in.validate(); err != nil {
		return Settings{}, err
	}
	var out Settings
	err := s.pool.QueryRow(ctx, `
		INSERT INTO settings (id, weight_monetary, weight_frequency, weight_points, weight_timeliness,
			backup_frequency, backup_retention_days, overdue_grace_days, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			weight_monetary = EXCLUDED.weight_monetary,
			weight_frequency = EXCLUDED.weight_frequency,
			weight_points = EXCLUDED.weight_points,
			weight_timeliness = EXCLUDED.weight_timeliness,
			backup_frequency = EXCLUDED.backup_frequency,
			backup_retention_days = EXCLUDED.backup_retention_days,
			overdue_grace_days = EXCLUDED.overdue_grace_days,
			updated_at = NOW()
		RETURNING `+settingsColumns,
		in.WeightMonetary, in.WeightFrequency, in.WeightPoints, in.WeightTimeliness,
		in.BackupFrequency, in.BackupRetentionDays, in.OverdueGraceDays).
		Scan(&out.WeightMonetary, &out.WeightFrequency, &out.WeightPoints, &out.WeightTimeliness,
			&out.BackupFrequency, &out.BackupRetentionDays, &out.OverdueGraceDays, &out.UpdatedAt)
	return out, err
}

// ScoreWeights implements the loyalty weight source.
func (s *Store) ScoreWeights(ctx context.Context) (loyalty.ScoreWeights, error) {
	loaded, err := s.Load(ctx)
	if err != nil {
		return loyalty.ScoreWeights{}, err
	}
	return loaded.Weights(), nil
}
