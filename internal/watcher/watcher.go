// Package watcher re-runs analysis when manifests or schemas in the
// workspace change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"archlens/internal/config"
	"archlens/internal/paths"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler receives each debounced batch of relevant events.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	Enabled        bool
	DebounceMs     int
	IgnorePatterns []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 1500,
		IgnorePatterns: []string{
			"**/*.log",
			"**/*.tmp",
			"**/node_modules/**",
			"**/.git/**",
			"**/vendor/**",
			"**/__pycache__/**",
			"**/" + config.ConfigDir + "/**",
		},
	}
}

// ConfigFrom builds a watcher config from the file configuration.
func ConfigFrom(cfg config.WatcherConfig, exclude []string) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.DebounceMs > 0 {
		c.DebounceMs = cfg.DebounceMs
	}
	c.IgnorePatterns = append(c.IgnorePatterns, exclude...)
	return c
}

// manifestNames are the files whose content feeds the architecture passes.
var manifestNames = map[string]bool{
	"package.json":     true,
	"requirements.txt": true,
	"pyproject.toml":   true,
	"go.mod":           true,
	"cargo.toml":       true,
}

// IsRelevant reports whether a change to path can alter the analysis result:
// dependency manifests, compose files, Prisma and SQL schemas.
func IsRelevant(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if manifestNames[name] {
		return true
	}
	switch filepath.Ext(name) {
	case ".prisma", ".sql":
		return true
	case ".yml", ".yaml":
		return strings.HasPrefix(name, "docker-compose") || strings.HasPrefix(name, "compose")
	}
	return false
}

// Watcher watches workspace folders with fsnotify.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler

	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer
	folders   []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a new file system watcher
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.debouncer = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w
}

// Start adds recursive watches below every folder and begins processing events.
func (w *Watcher) Start(folders []string) error {
	if !w.config.Enabled {
		w.logger.Info("File watcher is disabled")
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	w.mu.Lock()
	w.fsw = fsw
	w.folders = folders
	w.mu.Unlock()

	dirs := 0
	for _, folder := range folders {
		n, err := w.addTree(folder)
		if err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watching %s: %w", folder, err)
		}
		dirs += n
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("Starting file watcher",
		"folders", len(folders),
		"directories", dirs,
		"debounceMs", w.config.DebounceMs,
	)
	return nil
}

// Stop stops watching. Pending events are dropped.
func (w *Watcher) Stop() error {
	w.cancel()

	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	w.wg.Wait()
	w.debouncer.Cancel()
	w.logger.Info("File watcher stopped")
	return err
}

func (w *Watcher) addTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (paths.IsExcluded(path) || w.IsIgnored(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err.Error())
			return nil
		}
		count++
		return nil
	})
	return count, err
}

// IsIgnored checks if a path matches ignore patterns
func (w *Watcher) IsIgnored(path string) bool {
	slashed := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, pattern := range w.config.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		// Directory patterns such as **/node_modules/** should also match the directory itself.
		if strings.HasSuffix(pattern, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), slashed); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.IsIgnored(ev.Name) || paths.IsExcluded(ev.Name) {
		return
	}

	var typ EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
		// New directories need their own watch.
		if n, err := w.addTree(ev.Name); err == nil && n > 0 {
			w.logger.Debug("Watching new directory", "path", ev.Name)
			return
		}
	case ev.Has(fsnotify.Write):
		typ = EventModify
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	default:
		return
	}

	if !IsRelevant(ev.Name) {
		return
	}
	w.debouncer.Add(Event{Type: typ, Path: ev.Name, Timestamp: time.Now()})
}

func (w *Watcher) emit(events []Event) {
	if w.ctx.Err() != nil {
		return
	}
	w.logger.Debug("Workspace changes detected", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

// WatchedFolders returns the folders passed to Start.
func (w *Watcher) WatchedFolders() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.folders...)
}
