package reports

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort loads report inputs.
type RepositoryPort interface {
	Activities(ctx context.Context) ([]Activity, error)
}

// Service computes and caches report tables. Concurrent requests for the
// same cold key collapse into one database load.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// RFM returns the recency/frequency/monetary table.
func (s *Service) RFM(ctx context.Context) ([]RFMRow, error) {
	var rows []RFMRow
	err := s.fetch(ctx, "rfm", &rows, func(activities []Activity) interface{} {
		return BuildRFM(activities, s.now())
	})
	return rows, err
}

// ChurnRisk returns the churn risk table.
func (s *Service) ChurnRisk(ctx context.Context) ([]ChurnRow, error) {
	var rows []ChurnRow
	err := s.fetch(ctx, "churn", &rows, func(activities []Activity) interface{} {
		return BuildChurn(activities, s.now())
	})
	return rows, err
}

// Frequency returns the purchase frequency table.
func (s *Service) Frequency(ctx context.Context) ([]FrequencyRow, error) {
	var rows []FrequencyRow
	err := s.fetch(ctx, "frequency", &rows, func(activities []Activity) interface{} {
		return BuildFrequency(activities, s.now())
	})
	return rows, err
}

// Invalidate bumps the cache version after sales data changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, name string, dest interface{}, build func([]Activity) interface{}) error {
	key, err := s.cache.BuildKey(ctx, "reports", name)
	if err != nil {
		return err
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (interface{}, error) {
			activities, err := s.repo.Activities(ctx)
			if err != nil {
				return nil, err
			}
			return build(activities), nil
		})
		return raw, err
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.(json.RawMessage), dest)
}
