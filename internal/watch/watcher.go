// Package watch turns edits of a single text file into form submissions.
// The file's directory is watched so that editors that save by renaming a
// temporary file are still seen.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc receives the file content once edits have settled. It runs on
// the watcher goroutine and should hand long work off.
type ChangeFunc func(ctx context.Context, content string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Triggers      int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// Watcher delivers the settled content of one file.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	stats Stats
	last  string
	seen  bool
}

// New creates a Watcher for path. The file must exist.
func New(path string, debounce time.Duration, onChange ChangeFunc, logger *zap.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil change callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Run delivers the current content immediately, then every settled change,
// until ctx is done. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching file", zap.String("path", w.path), zap.Duration("debounce", w.debounce))
	w.deliver(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-timer.C:
			w.deliver(ctx)
		}
	}
}

// handleEvent reports whether event concerns the watched file's content.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return false
	}

	w.logger.Debug("file event", zap.String("type", eventType))

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventType = eventType
	w.mu.Unlock()
	return true
}

// deliver reads the file and invokes the callback when content changed.
func (w *Watcher) deliver(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		// Mid-save renames can leave the path briefly missing.
		w.logger.Debug("read failed, waiting for next event", zap.Error(err))
		return
	}
	content := string(data)

	w.mu.Lock()
	if w.seen && content == w.last {
		w.mu.Unlock()
		return
	}
	w.seen = true
	w.last = content
	w.stats.Triggers++
	w.mu.Unlock()

	w.onChange(ctx, content)
}

// GetStats returns a copy of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
