package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/glintcare/glintcare/internal/jobs"
	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/settings"
)

// Task types handled by the worker.
const (
	TaskBackupRun   = "backup:run"
	TaskBackupSweep = "backup:sweep"
	TaskOverdueScan = "invoices:overdue"
	TaskReconcile   = "loyalty:reconcile"
	TaskTierRefresh = "loyalty:tiers"
)

// BackupSweepPayload carries the retention window for a sweep run.
type BackupSweepPayload struct {
	RetentionDays int `json:"retention_days"`
}

// OverdueScanPayload carries the grace window for overdue marking.
type OverdueScanPayload struct {
	GraceDays int `json:"grace_days"`
}

// NewBackupRunTask builds a backup run task.
func NewBackupRunTask() *asynq.Task {
	return asynq.NewTask(TaskBackupRun, nil)
}

// NewBackupSweepTask builds a retention sweep task.
func NewBackupSweepTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(BackupSweepPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackupSweep, payload), nil
}

// NewOverdueScanTask builds an overdue invoice scan task.
func NewOverdueScanTask(graceDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(OverdueScanPayload{GraceDays: graceDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, payload), nil
}

// NewReconcileTask builds a ledger reconciliation task.
func NewReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskReconcile, nil)
}

// NewTierRefreshTask builds a customer tier refresh task.
func NewTierRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTierRefresh, nil)
}

// BackupRunner runs backups and retention sweeps.
type BackupRunner interface {
	Run(ctx context.Context) (string, error)
	Sweep(ctx context.Context, retentionDays int) (int, error)
}

// OverdueMarker flips past-due credit invoices to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, graceDays int) (int, error)
}

// LedgerMaintainer reconciles counters and refreshes tiers.
type LedgerMaintainer interface {
	Reconcile(ctx context.Context) ([]loyalty.Drift, error)
	RefreshTiers(ctx context.Context) (int, error)
}

// Deps collects the services the task handlers call into.
type Deps struct {
	Backup   BackupRunner
	Invoices OverdueMarker
	Loyalty  LedgerMaintainer
	Metrics  *jobmetrics.Metrics
	Logger   *slog.Logger
}

// NewHandlers wires the task handlers over the provided services.
func NewHandlers(deps Deps) []TaskHandler {
	return []TaskHandler{
		{Type: TaskBackupRun, Handler: handleBackupRun(deps)},
		{Type: TaskBackupSweep, Handler: handleBackupSweep(deps)},
		{Type: TaskOverdueScan, Handler: handleOverdueScan(deps)},
		{Type: TaskReconcile, Handler: handleReconcile(deps)},
		{Type: TaskTierRefresh, Handler: handleTierRefresh(deps)},
	}
}

func handleBackupRun(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := deps.Metrics.Track(TaskBackupRun)
		key, err := deps.Backup.Run(ctx)
		if err != nil {
			return tracker.End(err)
		}
		deps.Logger.Info("backup task complete", slog.String("key", key))
		return tracker.End(nil)
	}
}

func handleBackupSweep(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload BackupSweepPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("backup sweep payload: %w: %w", err, asynq.SkipRetry)
		}
		tracker := deps.Metrics.Track(TaskBackupSweep)
		removed, err := deps.Backup.Sweep(ctx, payload.RetentionDays)
		if err != nil {
			return tracker.End(err)
		}
		deps.Logger.Info("backup sweep complete", slog.Int("removed", removed))
		return tracker.End(nil)
	}
}

func handleOverdueScan(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload OverdueScanPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("overdue scan payload: %w: %w", err, asynq.SkipRetry)
		}
		tracker := deps.Metrics.Track(TaskOverdueScan)
		marked, err := deps.Invoices.MarkOverdue(ctx, payload.GraceDays)
		if err != nil {
			return tracker.End(err)
		}
		if marked > 0 {
			deps.Logger.Info("overdue scan complete", slog.Int("marked", marked))
		}
		return tracker.End(nil)
	}
}

func handleReconcile(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := deps.Metrics.Track(TaskReconcile)
		drifts, err := deps.Loyalty.Reconcile(ctx)
		if err != nil {
			return tracker.End(err)
		}
		deps.Metrics.AddDrifts(len(drifts))
		for _, drift := range drifts {
			deps.Logger.Warn("ledger drift detected",
				slog.Int64("customer_id", drift.CustomerID),
				slog.String("field", drift.Field),
				slog.Float64("stored", drift.Stored),
				slog.Float64("expected", drift.Expected))
		}
		return tracker.End(nil)
	}
}

func handleTierRefresh(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := deps.Metrics.Track(TaskTierRefresh)
		changed, err := deps.Loyalty.RefreshTiers(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if changed > 0 {
			deps.Logger.Info("tier refresh complete", slog.Int("changed", changed))
		}
		return tracker.End(nil)
	}
}

// backupCronSpecs maps the configured backup frequency to a cron expression.
// Backups run at 03:00 UTC; the sweep trails them by half an hour.
var backupCronSpecs = map[string]string{
	settings.FrequencyDaily:   "0 3 * * *",
	settings.FrequencyWeekly:  "0 3 * * 0",
	settings.FrequencyMonthly: "0 3 1 * *",
}

// BuildCron derives the periodic schedule from the stored settings.
func BuildCron(cfg settings.Settings) ([]CronRegistration, error) {
	spec, ok := backupCronSpecs[cfg.BackupFrequency]
	if !ok {
		spec = backupCronSpecs[settings.FrequencyDaily]
	}
	sweepTask, err := NewBackupSweepTask(cfg.BackupRetentionDays)
	if err != nil {
		return nil, err
	}
	overdueTask, err := NewOverdueScanTask(cfg.OverdueGraceDays)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: spec, Task: NewBackupRunTask()},
		{Spec: "30 3 * * *", Task: sweepTask},
		{Spec: "0 1 * * *", Task: overdueTask},
		{Spec: "0 2 * * *", Task: NewReconcileTask()},
		{Spec: "0 4 * * *", Task: NewTierRefreshTask()},
	}, nil
}
