// Package template loads the deck template and keeps an in-memory snapshot
// of it. A Store hands every build the same immutable bytes until the file
// changes on disk, at which point the fsnotify watcher drops the snapshot
// and the next build reloads it.
package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"succession/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Source supplies template bytes to the deck builder.
type Source interface {
	Snapshot() ([]byte, error)
}

// Static is a fixed in-memory template.
type Static []byte

// Snapshot returns the bytes as is.
func (s Static) Snapshot() ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("template is empty")
	}
	return s, nil
}

// Store caches the template file and reloads it after changes.
type Store struct {
	mu          sync.RWMutex
	path        string
	data        []byte
	loadedAt    time.Time
	watcher     *fsnotify.Watcher
	pending     time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	onReload    func()

	stats StoreStats
}

// StoreStats tracks store activity.
type StoreStats struct {
	Loads         int
	Invalidations int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// NewStore creates a store for the template at path. Nothing is read until
// the first Snapshot.
func NewStore(path string) *Store {
	return &Store{
		path:        path,
		debounceDur: 250 * time.Millisecond,
	}
}

// Path returns the template path.
func (s *Store) Path() string { return s.path }

// OnReload registers a callback fired after each debounced invalidation.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	s.onReload = fn
	s.mu.Unlock()
}

// Snapshot returns the cached template bytes, loading them on first use.
// Callers must not modify the returned slice.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	if s.data != nil {
		data := s.data
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.data, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("failed to read template %s: %w", s.path, err)
	}
	if len(data) == 0 {
		s.stats.Errors++
		return nil, fmt.Errorf("template %s is empty", s.path)
	}
	s.data = data
	s.loadedAt = time.Now()
	s.stats.Loads++
	logging.Template("Loaded template %s (%d bytes)", s.path, len(data))
	return data, nil
}

// Invalidate drops the cached snapshot.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.data = nil
	s.stats.Invalidations++
	s.mu.Unlock()
}

// Stats returns a copy of the store counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Start watches the template's directory. Editors often replace files
// instead of writing them, so the directory is watched and events are
// filtered by file name. Non-blocking.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	logging.Template("Watching template directory %s", dir)
	go s.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	if err := s.watcher.Close(); err != nil {
		logging.Get(logging.CategoryTemplate).Errorf("error closing template watcher: %v", err)
	}
	logging.Template("Template watcher stopped")
}

func (s *Store) run(ctx context.Context) {
	defer close(s.doneCh)

	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.stopCh:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryTemplate).Errorf("template watcher error: %v", err)
			s.mu.Lock()
			s.stats.Errors++
			s.mu.Unlock()

		case <-debounceTicker.C:
			s.processDebounced()
		}
	}
}

func (s *Store) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.TemplateDebug("template %s event for %s", eventType, event.Name)

	s.mu.Lock()
	s.stats.LastEventTime = time.Now()
	s.stats.LastEventType = eventType
	s.pending = time.Now()
	s.mu.Unlock()
}

func (s *Store) processDebounced() {
	s.mu.Lock()
	if s.pending.IsZero() || time.Since(s.pending) < s.debounceDur {
		s.mu.Unlock()
		return
	}
	s.pending = time.Time{}
	s.data = nil
	s.stats.Invalidations++
	fn := s.onReload
	s.mu.Unlock()

	logging.Template("Template %s changed, snapshot dropped", s.path)
	if fn != nil {
		fn()
	}
}
