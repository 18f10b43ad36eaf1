package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubActivities struct {
	activities []Activity
	loads      int
}

func (s *stubActivities) Activities(context.Context) ([]Activity, error) {
	s.loads++
	return s.activities, nil
}

func day(offset int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func sampleActivities() []Activity {
	return []Activity{
		{CustomerID: 1, Name: "Amman Detailing", Total: 900,
			InvoiceDates: []time.Time{day(0), day(20), day(40), day(60)}},
		{CustomerID: 2, Name: "Irbid Car Care", Total: 300,
			InvoiceDates: []time.Time{day(0), day(30)}},
		{CustomerID: 3, Name: "Aqaba Polish", Total: 100,
			InvoiceDates: []time.Time{day(5)}},
	}
}

func TestBuildRFMScoresWithinPopulation(t *testing.T) {
	now := day(70)
	rows := BuildRFM(sampleActivities(), now)
	require.Len(t, rows, 3)

	byID := make(map[int64]RFMRow)
	for _, row := range rows {
		byID[row.CustomerID] = row
	}

	// The most active, highest-spending, most recent customer tops every scale.
	top := byID[1]
	require.Equal(t, 10, top.RecencyDays)
	require.Equal(t, 4, top.Frequency)
	require.Greater(t, top.RecencyScore, byID[3].RecencyScore)
	require.Greater(t, top.FrequencyScore, byID[3].FrequencyScore)
	require.Greater(t, top.MonetaryScore, byID[3].MonetaryScore)
	require.Len(t, top.Segment, 3)
}

func TestBuildChurnFlagsLongSilence(t *testing.T) {
	now := day(70)
	rows := BuildChurn(sampleActivities(), now)
	require.Len(t, rows, 3)

	byID := make(map[int64]ChurnRow)
	for _, row := range rows {
		byID[row.CustomerID] = row
	}

	// Customer 1 buys every 20 days and bought 10 days ago.
	require.Equal(t, RiskLow, byID[1].Risk)
	// Customer 3 bought once, 65 days ago, against the 30-day default cadence.
	require.Equal(t, RiskMedium, byID[3].Risk)
}

func TestBuildFrequencyCountsPerMonth(t *testing.T) {
	rows := BuildFrequency(sampleActivities(), day(60))
	require.Len(t, rows, 3)
	require.Equal(t, int64(1), rows[0].CustomerID) // most invoices first
	require.Equal(t, 4, rows[0].InvoiceCount)
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubActivities{activities: sampleActivities()}
	svc := NewService(repo, NewCache(client, time.Minute))
	svc.now = func() time.Time { return day(70) }

	first, err := svc.RFM(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, 1, repo.loads)

	// Second read hits the cache.
	_, err = svc.RFM(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)

	// A version bump forces a reload.
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.RFM(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.loads)
}
