package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aretw0/notebook/pkg/core"
)

const watchDebounce = 50 * time.Millisecond

// Watch reports changes made to the snapshot by other processes. Writes made
// through this Store are not reported. The channel closes when ctx ends.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched, not the file: atomic saves replace the inode.
	if err := watcher.Add(s.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}

	events := make(chan core.Event, 16)
	deb := newDebouncer(watchDebounce)
	s.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer s.setWatcherActive(false)
		defer watcher.Close()

		stop := make(chan struct{})
		err := s.watchLoop(ctx, watcher, deb, func(e core.Event) {
			s.emit(ctx, stop, e, events)
		})
		close(stop)

		// Pending callbacks return once stop is closed. Only then is it safe
		// to close events.
		if deb.stopAndWait(5 * time.Second) {
			close(events)
		} else {
			s.logger.Warn("watcher callbacks still running, leaving events open")
		}
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("watcher stopped", zap.Error(err))
	}))

	return events, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, deb *debouncer, emit func(core.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			s.logger.Debug("event received", zap.String("name", event.Name), zap.String("op", event.Op.String()))

			eType := s.mapEventType(event)
			if eType == "" {
				continue
			}
			deb.add(core.Event{
				Type:      eType,
				Path:      event.Name,
				Timestamp: time.Now().Unix(),
			}, emit)

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error("fsnotify error", zap.Error(wErr))
		}
	}
}

// mapEventType keeps only events on the snapshot file itself.
func (s *Store) mapEventType(event fsnotify.Event) core.EventType {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, TempFilePrefix) || base != s.config.Snapshot {
		return ""
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return core.EventModify
	}
	return ""
}

// emit runs after the debounce window. By then a rename may have been
// followed by a create, so the file is checked again.
// Nothing is sent once stop is closed.
func (s *Store) emit(ctx context.Context, stop <-chan struct{}, e core.Event, events chan<- core.Event) {
	select {
	case <-stop:
		return
	case <-ctx.Done():
		return
	default:
	}

	data, err := os.ReadFile(e.Path)
	switch {
	case err == nil:
		if s.ownWrite(data) {
			return
		}
		e.Type = core.EventModify
	case os.IsNotExist(err):
		e.Type = core.EventDelete
	default:
		s.logger.Debug("snapshot unreadable after change", zap.Error(err))
		return
	}

	select {
	case events <- e:
	case <-stop:
	case <-ctx.Done():
	}
}

var (
	_ core.Store     = (*Store)(nil)
	_ core.Watchable = (*Store)(nil)
)
