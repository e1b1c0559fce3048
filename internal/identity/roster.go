package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Roster is the static first-name → platform-id mapping consulted before
// any network lookup. It is loaded from a JSON file and hot-reloaded
// when the file changes.
type Roster struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]string
}

func NewRoster(path string, logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	roster := &Roster{path: path, logger: logger, entries: map[string]string{}}
	if err := roster.reload(); err != nil {
		logger.Warn("roster file not loaded", "path", path, "error", err)
	}
	return roster
}

// Lookup returns the platform id for a first name, case-insensitive.
func (r *Roster) Lookup(firstName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.entries[strings.ToLower(strings.TrimSpace(firstName))]
	return id, ok
}

func (r *Roster) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read roster file: %w", err)
	}
	var parsed map[string]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode roster file: %w", err)
	}
	entries := make(map[string]string, len(parsed))
	for name, id := range parsed {
		name = strings.ToLower(strings.TrimSpace(name))
		id = strings.TrimSpace(id)
		if name != "" && id != "" {
			entries[name] = id
		}
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Watch reloads the roster whenever its file is rewritten. Blocks until
// the context is cancelled.
func (r *Roster) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create roster watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and config pushes replace the file.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch roster dir: %w", err)
	}
	r.logger.Info("roster watcher started", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("roster watcher stopped")
			return nil
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error("roster reload failed", "error", err)
				continue
			}
			r.logger.Info("roster reloaded", "path", r.path)
		case err := <-watcher.Errors:
			if err != nil {
				r.logger.Error("roster watcher error", "error", err)
			}
		}
	}
}
