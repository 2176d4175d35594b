// Package watch re-runs generation when its input files change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher watches a fixed set of files and calls onChange once per burst
// of changes to any of them.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   zerolog.Logger

	mu      sync.Mutex
	pending *time.Timer
	running sync.Mutex
}

// NewFileWatcher creates a watcher for files. Remote inputs (URLs) are
// skipped since there is nothing on disk to watch.
func NewFileWatcher(files []string, debounce time.Duration, onChange func(ctx context.Context) error) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &FileWatcher{
		watcher:  watcher,
		files:    map[string]bool{},
		debounce: debounce,
		onChange: onChange,
		logger:   log.Logger,
	}

	dirs := map[string]bool{}
	for _, f := range files {
		if f == "" || isRemote(f) {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	if len(fw.files) == 0 {
		watcher.Close()
		return nil, fmt.Errorf("no local files to watch")
	}

	// Watching directories survives editors that replace files on save.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	return fw, nil
}

// WithLogger sets the logger used for change and failure reports.
func (fw *FileWatcher) WithLogger(logger zerolog.Logger) *FileWatcher {
	fw.logger = logger
	return fw
}

// Start blocks until ctx is done, triggering onChange after each burst.
// A failing run is logged and watching continues.
func (fw *FileWatcher) Start(ctx context.Context) error {
	defer fw.stopPending()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if !fw.shouldTrigger(event) {
				continue
			}
			fw.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("input changed")
			fw.schedule(ctx)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			if err != nil {
				fw.logger.Warn().Err(err).Msg("watcher error")
			}
		}
	}
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	fw.stopPending()
	return fw.watcher.Close()
}

func (fw *FileWatcher) shouldTrigger(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return fw.files[abs]
}

func (fw *FileWatcher) schedule(ctx context.Context) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.pending = time.AfterFunc(fw.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		// runs never overlap; a burst during a run queues one more
		fw.running.Lock()
		defer fw.running.Unlock()
		if err := fw.onChange(ctx); err != nil {
			fw.logger.Error().Err(err).Msg("regeneration failed")
		}
	})
}

func (fw *FileWatcher) stopPending() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.pending != nil {
		fw.pending.Stop()
		fw.pending = nil
	}
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
