package backup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/platform/blob"
)

type stubDumper struct {
	rows map[string][]map[string]any
}

func (s stubDumper) DumpTable(_ context.Context, table string) ([]map[string]any, error) {
	return s.rows[table], nil
}

type memoryBlob struct {
	objects map[string][]byte
	stamps  map[string]time.Time
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{objects: make(map[string][]byte), stamps: make(map[string]time.Time)}
}

func (m *memoryBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	m.stamps[key] = time.Now()
	return nil
}

func (m *memoryBlob) Get(_ context.Context, key string) ([]byte, error) {
	return m.objects[key], nil
}

func (m *memoryBlob) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	delete(m.stamps, key)
	return nil
}

func (m *memoryBlob) List(_ context.Context, prefix string) ([]blob.Object, error) {
	var out []blob.Object
	for key, data := range m.objects {
		out = append(out, blob.Object{Key: key, Size: int64(len(data)), LastModified: m.stamps[key]})
	}
	return out, nil
}

func TestRunDumpsTablesInOrder(t *testing.T) {
	store := newMemoryBlob()
	svc := NewService(stubDumper{rows: map[string][]map[string]any{
		"customers": {{"id": int64(1), "name": "Amman Detailing"}},
		"invoices":  {{"id": int64(10), "customer_id": int64(1)}},
	}}, store, nil)

	key, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, key, archivePrefix)

	var doc Document
	require.NoError(t, json.Unmarshal(store.objects[key], &doc))
	require.Equal(t, tableOrder, doc.Order)
	require.Len(t, doc.Tables["customers"], 1)
	require.Contains(t, doc.Tables, "points_history")
}

func TestSweepRemovesExpiredArchives(t *testing.T) {
	store := newMemoryBlob()
	svc := NewService(stubDumper{}, store, nil)

	require.NoError(t, store.Put(context.Background(), archivePrefix+"old.json", []byte("{}"), "application/json"))
	store.stamps[archivePrefix+"old.json"] = time.Now().AddDate(0, 0, -40)
	require.NoError(t, store.Put(context.Background(), archivePrefix+"fresh.json", []byte("{}"), "application/json"))

	removed, err := svc.Sweep(context.Background(), 30)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	archives, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 1)
	require.Equal(t, archivePrefix+"fresh.json", archives[0].Key)
}
