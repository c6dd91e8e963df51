package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"succession/internal/config"
	"succession/internal/pptx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "template.pptx")
	require.NoError(t, WriteDefault(path, config.DefaultConfig().PowerPoint))
	return path
}

func TestDefault_HasFixedSchema(t *testing.T) {
	cfg := config.DefaultConfig().PowerPoint
	data, err := Default(cfg)
	require.NoError(t, err)

	p, err := pptx.Open(data)
	require.NoError(t, err)
	slides, err := p.Slides()
	require.NoError(t, err)
	require.Len(t, slides, 1)
	s := slides[0]

	shape := s.ShapeByName(DataTableName)
	require.NotNil(t, shape)
	tbl, ok := shape.Table()
	require.True(t, ok)
	assert.Equal(t, 4, tbl.Rows())
	assert.Equal(t, 3, tbl.Cols())
	assert.Equal(t, "Successor 2", tbl.Cell(0, 1).Text())
	assert.Equal(t, "Strengths\n"+strings.Repeat(cfg.Markers.Detail+"\n", 2)+cfg.Markers.Detail, tbl.Cell(1, 0).Text())

	for n := 1; n <= 4; n++ {
		assert.NotNil(t, s.ShapeByName(fmt.Sprintf("Photo %d", n)), "photo slot %d", n)
	}
	text := s.Text()
	for _, marker := range []string{cfg.Markers.Name, cfg.Markers.Position, cfg.Markers.Summary, cfg.Markers.Responsibilities} {
		assert.Contains(t, text, marker)
	}
}

func TestDefault_RejectsZeroCapacity(t *testing.T) {
	cfg := config.DefaultConfig().PowerPoint
	cfg.SuccessorsPerSlide = 0
	_, err := Default(cfg)
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	_, err := Static(nil).Snapshot()
	assert.Error(t, err)
	data, err := Static("x").Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestStore_CachesUntilInvalidated(t *testing.T) {
	path := writeTemplate(t, t.TempDir())
	s := NewStore(path)

	first, err := s.Snapshot()
	require.NoError(t, err)
	second, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Stats().Loads)

	s.Invalidate()
	_, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Stats().Loads)
}

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.pptx"))
	_, err := s.Snapshot()
	assert.Error(t, err)
	assert.Equal(t, 1, s.Stats().Errors)
}

func TestStore_WatcherDropsSnapshotOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	s := NewStore(path)
	s.debounceDur = 10 * time.Millisecond

	reloaded := make(chan struct{}, 1)
	s.OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	_, err := s.Snapshot()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("replaced"), 0644))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not drop the snapshot")
	}

	data, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), data)
	assert.GreaterOrEqual(t, s.Stats().Invalidations, 1)
}

func TestStore_StartTwiceAndStopIdempotent(t *testing.T) {
	s := NewStore(writeTemplate(t, t.TempDir()))
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	s.Stop()
	s.Stop()
}
