package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-pulse/internal/history"
)

type fakeBackend struct {
	loadErr error
	saveErr error
	data    history.History
	saves   int
}

func (f *fakeBackend) Load(context.Context) (history.History, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.data.Clone(), nil
}

func (f *fakeBackend) Save(_ context.Context, h history.History) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data = h.Clone()
	return nil
}

func TestStore_LoadMissingReturnsEmpty(t *testing.T) {
	s := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "stats.json")), t.TempDir(), nil)
	h := s.Load(context.Background())
	require.NotNil(t, h)
	assert.Empty(t, h)
}

func TestStore_LoadFallsBackToCache(t *testing.T) {
	fb := &fakeBackend{data: history.History{"2024-01-01": {"a/b": {Stars: 3}}}}
	s := NewStore(fb, t.TempDir(), nil)
	ctx := context.Background()

	first := s.Load(ctx)
	assert.Len(t, first, 1)

	fb.loadErr = errors.New("disk gone")
	second := s.Load(ctx)
	assert.Equal(t, first, second)
}

func TestStore_SaveUpdatesCacheEvenWhenDurableWriteFails(t *testing.T) {
	fb := &fakeBackend{saveErr: errors.New("boom"), loadErr: ErrEmpty}
	dir := t.TempDir()
	s := NewStore(fb, dir, nil)
	ctx := context.Background()

	h := history.History{"2024-01-02": {"x/y": {Stars: 5, Issues: 3}}}
	s.Save(ctx, h)
	assert.Equal(t, h, s.Load(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "fallback copy is only written for read-only failures")
}

func TestStore_ReadOnlyWritesFallbackCopy(t *testing.T) {
	fb := &fakeBackend{saveErr: fmt.Errorf("write stats.json: %w", fs.ErrPermission)}
	dir := t.TempDir()
	s := NewStore(fb, dir, nil)
	s.now = func() time.Time { return time.Unix(0, 42) }

	h := history.History{"2024-01-02": {"x/y": {Stars: 5}}}
	s.Save(context.Background(), h)

	p := filepath.Join(dir, "stats-42.json")
	loaded, err := NewFileBackend(p).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, h, loaded)

	// fallback copies are never read back
	fb.loadErr = ErrEmpty
	fb.saveErr = nil
	assert.Equal(t, h, s.Load(context.Background()))
}

func TestStore_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stats.json")
	s := NewStore(NewFileBackend(p), t.TempDir(), nil)
	ctx := context.Background()

	h := s.Load(ctx)
	h.Record("2024-01-01", "a/b", history.Snapshot{Stars: 10, Commits: 5, Issues: 2})
	s.Save(ctx, h)

	fresh := NewStore(NewFileBackend(p), t.TempDir(), nil)
	assert.Equal(t, h, fresh.Load(ctx))
}

func TestStore_MemoryOnly(t *testing.T) {
	s := NewStore(nil, "", nil)
	ctx := context.Background()
	assert.Empty(t, s.Load(ctx))

	h := history.History{"2024-01-01": {"a/b": {Stars: 1}}}
	s.Save(ctx, h)
	assert.Equal(t, h, s.Load(ctx))
}

func TestStore_CorruptDocumentIsNotOverwritten(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"2024-01-01": {"a/b": {"stars": 10,`), 0o644))
	dir := t.TempDir()
	s := NewStore(NewFileBackend(p), dir, nil)
	s.now = func() time.Time { return time.Unix(0, 7) }
	ctx := context.Background()

	h := s.Load(ctx)
	assert.Empty(t, h)
	h.Record("2024-01-02", "a/b", history.Snapshot{Stars: 11})
	s.Save(ctx, h)

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `{"2024-01-01": {"a/b": {"stars": 10,`, string(raw))

	copied, err := NewFileBackend(filepath.Join(dir, "stats-7.json")).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, h, copied)
	assert.Equal(t, h, s.Load(ctx))
}

func TestStore_RepairedDocumentIsWrittenAgain(t *testing.T) {
	fb := &fakeBackend{loadErr: fmt.Errorf("%w: unexpected end of JSON input", ErrCorrupt)}
	s := NewStore(fb, t.TempDir(), nil)
	ctx := context.Background()

	s.Save(ctx, s.Load(ctx))
	assert.Zero(t, fb.saves)

	fb.loadErr = ErrEmpty
	h := s.Load(ctx)
	h.Record("2024-01-02", "a/b", history.Snapshot{Stars: 1})
	s.Save(ctx, h)
	assert.Equal(t, 1, fb.saves)
}
