// Package memory provides an in-process core.Store. Records go through the
// image codec exactly like the durable stores do.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
)

type record struct {
	ID        string
	Title     string
	Body      string
	ImageBlob []byte
	CreatedAt time.Time
	EditedAt  *time.Time
}

// Store keeps the persisted set in memory.
type Store struct {
	mu        sync.Mutex
	codec     *codec.Codec
	records   []record
	saves     [][]core.Note
	fetches   int
	saveErr   error
	fetchErr  error
	saveDelay time.Duration
	onSave    func(notes []core.Note)
}

// NewStore creates an empty store.
func NewStore(c *codec.Codec) *Store {
	if c == nil {
		c = codec.New(nil)
	}
	return &Store{codec: c}
}

// Seed replaces the stored set without recording a save.
func (s *Store) Seed(notes []core.Note) error {
	records, err := s.encode(notes)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	return nil
}

// FailSaves makes every following SaveAll return err. nil restores normal behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// FailFetch makes every following FetchAll return err.
func (s *Store) FailFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// SetSaveDelay slows every SaveAll down, to observe queueing.
func (s *Store) SetSaveDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveDelay = d
}

// OnSave registers a hook called with every SaveAll argument, before it is applied.
func (s *Store) OnSave(fn func(notes []core.Note)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = fn
}

// Saves returns every set passed to SaveAll, in call order.
func (s *Store) Saves() [][]core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]core.Note, len(s.saves))
	for i, set := range s.saves {
		out[i] = core.CloneNotes(set)
	}
	return out
}

// Fetches returns how many times FetchAll was called.
func (s *Store) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *Store) Initialize(ctx context.Context) error { return nil }

// FetchAll implements core.Store.
func (s *Store) FetchAll(ctx context.Context) ([]core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	notes := make([]core.Note, 0, len(s.records))
	for _, r := range s.records {
		n := core.Note{
			ID:        r.ID,
			Title:     r.Title,
			Body:      r.Body,
			Images:    s.codec.DecodeImages(r.ImageBlob),
			CreatedAt: r.CreatedAt,
		}
		if r.EditedAt != nil {
			t := *r.EditedAt
			n.EditedAt = &t
		}
		notes = append(notes, n)
	}
	core.SortNotes(notes)
	return notes, nil
}

// SaveAll implements core.Store.
func (s *Store) SaveAll(ctx context.Context, notes []core.Note) error {
	s.mu.Lock()
	delay, hook := s.saveDelay, s.onSave
	s.mu.Unlock()

	if hook != nil {
		hook(core.CloneNotes(notes))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	records, encErr := s.encode(notes)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, core.CloneNotes(notes))

	if s.saveErr != nil {
		return s.saveErr
	}
	if encErr != nil {
		return encErr
	}
	s.records = records
	return nil
}

func (s *Store) encode(notes []core.Note) ([]record, error) {
	records := make([]record, 0, len(notes))
	for _, n := range notes {
		blob, err := s.codec.EncodeImages(n.Images)
		if err != nil {
			return nil, err
		}
		r := record{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			ImageBlob: blob,
			CreatedAt: n.CreatedAt,
		}
		if n.EditedAt != nil {
			t := *n.EditedAt
			r.EditedAt = &t
		}
		records = append(records, r)
	}
	return records, nil
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}
