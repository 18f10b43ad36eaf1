// Package backup dumps the operational tables into timestamped JSON
// archives on the blob store and prunes archives past the retention window.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glintcare/glintcare/internal/platform/blob"
)

// archivePrefix namespaces backup objects in the bucket.
const archivePrefix = "archives/"

// tableOrder is the fixed dump order, parents before children, so a restore
// can replay the document top to bottom.
var tableOrder = []string{
	"settings",
	"customers",
	"products",
	"invoices",
	"invoice_items",
	"payments",
	"redemptions",
	"redemption_items",
	"returns",
	"return_items",
	"points_history",
}

// Archive is one stored backup.
type Archive struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Document is the serialized backup payload.
type Document struct {
	CreatedAt time.Time                   `json:"created_at"`
	Tables    map[string][]map[string]any `json:"tables"`
	Order     []string                    `json:"order"`
}

// DumperPort reads whole tables as generic rows.
type DumperPort interface {
	DumpTable(ctx context.Context, table string) ([]map[string]any, error)
}

// BlobPort is the slice of the blob store the service uses.
type BlobPort interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]blob.Object, error)
}

// Service orchestrates backup runs and retention sweeps.
type Service struct {
	dumper DumperPort
	store  BlobPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(dumper DumperPort, store BlobPort, logger *slog.Logger) *Service {
	return &Service{dumper: dumper, store: store, logger: logger, now: time.Now}
}

// Run dumps every table in order and uploads one archive. Returns the
// object key.
func (s *Service) Run(ctx context.Context) (string, error) {
	doc := Document{
		CreatedAt: s.now().UTC(),
		Tables:    make(map[string][]map[string]any, len(tableOrder)),
		Order:     tableOrder,
	}
	for _, table := range tableOrder {
		rows, err := s.dumper.DumpTable(ctx, table)
		if err != nil {
			return "", fmt.Errorf("backup: dump %s: %w", table, err)
		}
		doc.Tables[table] = rows
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	key := archivePrefix + doc.CreatedAt.Format("20060102-150405") + ".json"
	if err := s.store.Put(ctx, key, payload, "application/json"); err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info("backup archived", slog.String("key", key), slog.Int("bytes", len(payload)))
	}
	return key, nil
}

// Sweep deletes archives older than the retention window. Returns the
// number removed.
func (s *Service) Sweep(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 && s.logger != nil {
		s.logger.Info("backup retention sweep", slog.Int("removed", removed))
	}
	return removed, nil
}

// List returns the stored archives.
func (s *Service) List(ctx context.Context) ([]Archive, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}
	archives := make([]Archive, 0, len(objects))
	for _, obj := range objects {
		archives = append(archives, Archive{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return archives, nil
}

// Fetch downloads one archive payload.
func (s *Service) Fetch(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, key)
}
