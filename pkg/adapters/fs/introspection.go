package fs

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	Snapshot      string     `json:"snapshot"`
	Format        string     `json:"format"`
	SystemDir     string     `json:"system_dir"`
	Versioning    bool       `json:"versioning"`
	Serializers   []string   `json:"serializers"`
	WatcherActive bool       `json:"watcher_active"`
	Saves         uint64     `json:"saves"`
	LastSave      *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serializers := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		serializers = append(serializers, ext)
	}
	sort.Strings(serializers)

	return StoreState{
		Path:          s.Path,
		Snapshot:      s.config.Snapshot,
		Format:        filepath.Ext(s.config.Snapshot),
		SystemDir:     s.config.SystemDir,
		Versioning:    s.config.Versioning,
		Serializers:   serializers,
		WatcherActive: s.watcherActive,
		Saves:         s.saves,
		LastSave:      s.lastSave,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
