package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corejournal "github.com/kilianp07/evsync/core/journal"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func sample() []corejournal.Entry {
	return []corejournal.Entry{
		{Timestamp: t0, Path: "full_set", Kind: "success", Items: 3},
		{Timestamp: t0.Add(time.Minute), Path: "delta", Kind: "failure", Items: 1, Warnings: []string{"w"}},
		{Timestamp: t0.Add(2 * time.Minute), Path: "status", Kind: "success", Items: 2},
		{Timestamp: t0.Add(3 * time.Minute), Path: "cdr", Kind: "partial", Items: 2, NotForwarded: []string{"s2"}},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, e := range sample() {
		require.NoError(t, s.Append(ctx, e))
	}

	all, err := s.Query(ctx, corejournal.Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "full_set", all[0].Path)
	assert.Equal(t, []string{"s2"}, all[3].NotForwarded)

	res, err := s.Query(ctx, corejournal.Query{Kind: "success"})
	require.NoError(t, err)
	require.Len(t, res, 2)

	res, err = s.Query(ctx, corejournal.Query{Path: "delta"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, []string{"w"}, res[0].Warnings)

	res, err = s.Query(ctx, corejournal.Query{Start: t0.Add(time.Minute), End: t0.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.Query(ctx, corejournal.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "cdr", res[0].Path)
}

func TestRotatingJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outcomes.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 2, 1)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestRotatingJSONLStoreReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outcomes.jsonl")
	backup := `{"timestamp":"2025-03-01T07:00:00Z","path":"delta","kind":"success","items":1,"runtime_ms":0}` + "\n" + "not json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outcomes-2025-03-01T07-30-00.000.jsonl"), []byte(backup), 0o644))

	s, err := NewRotatingJSONLStore(path, 1, 2, 0)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Append(context.Background(), corejournal.Entry{Timestamp: t0, Path: "status", Kind: "success"}))

	res, err := s.Query(context.Background(), corejournal.Query{})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "delta", res[0].Path)
	assert.Equal(t, "status", res[1].Path)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Validate())

	c = Config{Backend: BackendSQLite}
	c.SetDefaults()
	assert.Equal(t, "outcomes.db", c.Path)
	assert.NoError(t, c.Validate())

	c = Config{Backend: BackendJSONL}
	c.SetDefaults()
	assert.Equal(t, "outcomes.jsonl", c.Path)

	assert.ErrorContains(t, Config{Backend: "csv", Path: "x"}.Validate(), "unknown backend")
	assert.ErrorContains(t, Config{Backend: BackendJSONL, Path: "x", MaxBackups: -1}.Validate(), "negative")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Backend: BackendJSONL, Path: filepath.Join(dir, "o.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(Config{Backend: BackendSQLite, Path: filepath.Join(dir, "o.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "csv"})
	assert.Error(t, err)
}
