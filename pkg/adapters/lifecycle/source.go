// Package lifecycle exposes notebook changes as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notebook/pkg/core"
)

// Watcher is anything that streams collection changes, typically a *core.Manager.
type Watcher interface {
	Watch(ctx context.Context) <-chan core.Change
}

type changeSource struct {
	watcher Watcher
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits one event per collection
// change. The stream starts when the source is started.
func NewSource(watcher Watcher) lifecycle.Source {
	return &changeSource{
		watcher: watcher,
		out:     make(chan lifecycle.Event),
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource) Start(ctx context.Context) error {
	changes := s.watcher.Watch(ctx)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case c, ok := <-changes:
				if !ok {
					return nil
				}
				// core.Change implements lifecycle.Event (has String())
				select {
				case s.out <- c:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
