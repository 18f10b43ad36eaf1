package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/settings"
)

type stubBackup struct {
	runs   int
	sweeps []int
}

func (s *stubBackup) Run(context.Context) (string, error) {
	s.runs++
	return "archives/test.json", nil
}

func (s *stubBackup) Sweep(_ context.Context, retentionDays int) (int, error) {
	s.sweeps = append(s.sweeps, retentionDays)
	return 0, nil
}

type stubMarker struct {
	grace []int
}

func (s *stubMarker) MarkOverdue(_ context.Context, graceDays int) (int, error) {
	s.grace = append(s.grace, graceDays)
	return 2, nil
}

type stubLedger struct {
	reconciles int
	refreshes  int
}

func (s *stubLedger) Reconcile(context.Context) ([]loyalty.Drift, error) {
	s.reconciles++
	return nil, nil
}

func (s *stubLedger) RefreshTiers(context.Context) (int, error) {
	s.refreshes++
	return 3, nil
}

func testDeps(backup *stubBackup, marker *stubMarker, ledger *stubLedger) Deps {
	return Deps{
		Backup:   backup,
		Invoices: marker,
		Loyalty:  ledger,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestHandlersRouteToServices(t *testing.T) {
	backupSvc := &stubBackup{}
	marker := &stubMarker{}
	ledger := &stubLedger{}
	handlers := NewHandlers(testDeps(backupSvc, marker, ledger))
	require.Len(t, handlers, 5)

	byType := make(map[string]asynq.HandlerFunc, len(handlers))
	for _, h := range handlers {
		byType[h.Type] = h.Handler
	}

	ctx := context.Background()
	require.NoError(t, byType[TaskBackupRun](ctx, NewBackupRunTask()))
	require.Equal(t, 1, backupSvc.runs)

	sweepTask, err := NewBackupSweepTask(14)
	require.NoError(t, err)
	require.NoError(t, byType[TaskBackupSweep](ctx, sweepTask))
	require.Equal(t, []int{14}, backupSvc.sweeps)

	overdueTask, err := NewOverdueScanTask(5)
	require.NoError(t, err)
	require.NoError(t, byType[TaskOverdueScan](ctx, overdueTask))
	require.Equal(t, []int{5}, marker.grace)

	require.NoError(t, byType[TaskReconcile](ctx, NewReconcileTask()))
	require.Equal(t, 1, ledger.reconciles)

	require.NoError(t, byType[TaskTierRefresh](ctx, NewTierRefreshTask()))
	require.Equal(t, 1, ledger.refreshes)
}

func TestSweepHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := handleBackupSweep(testDeps(&stubBackup{}, &stubMarker{}, &stubLedger{}))
	err := handler(context.Background(), asynq.NewTask(TaskBackupSweep, []byte("not json")))
	require.Error(t, err)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestBuildCronFollowsBackupFrequency(t *testing.T) {
	cases := map[string]string{
		settings.FrequencyDaily:   "0 3 * * *",
		settings.FrequencyWeekly:  "0 3 * * 0",
		settings.FrequencyMonthly: "0 3 1 * *",
		"hourly":                  "0 3 * * *",
	}
	for frequency, want := range cases {
		cfg := settings.Defaults()
		cfg.BackupFrequency = frequency
		cron, err := BuildCron(cfg)
		require.NoError(t, err)
		require.Len(t, cron, 5)
		require.Equal(t, want, cron[0].Spec)
		require.Equal(t, TaskBackupRun, cron[0].Task.Type())
	}
}
