package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns the canonical, sorted collection of committed notes and the
// single pending draft. Every change of membership or order is announced
// through the Broker and persisted with a full SaveAll.
type Manager struct {
	store  Store
	opts   *managerOptions
	logger *zap.Logger
	broker *Broker
	writer *writer

	mu        sync.RWMutex
	notes     []Note
	draft     *Note
	loaded    bool
	loading   bool
	closed    bool
	lastStamp time.Time
}

// NewManager creates a Manager over store and starts its save writer.
// Call LoadInitial before committing and Close when done.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	o := defaultManagerOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		store:  store,
		opts:   o,
		logger: o.logger,
		broker: newBroker(o.eventBuffer, o.logger),
		writer: newWriter(store, o.logger, o.onSaveError, o.saveTimeout),
	}
	m.writer.start()
	return m
}

// LoadInitial populates the collection from the store. It may succeed only
// once; after a failure it can be retried.
func (m *Manager) LoadInitial(ctx context.Context) ([]Note, error) {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return nil, ErrClosed
	case m.loaded || m.loading:
		m.mu.Unlock()
		return nil, invalidState("collection already loaded")
	}
	m.loading = true
	m.mu.Unlock()

	fetched, err := m.store.FetchAll(ctx)

	m.mu.Lock()
	m.loading = false
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("initial load failed", zap.Error(err))
		return nil, &PersistenceError{Op: "fetch", Err: err}
	}

	m.notes = m.admit(fetched)
	m.loaded = true
	for _, n := range m.notes {
		if n.EditedAt.After(m.lastStamp) {
			m.lastStamp = *n.EditedAt
		}
	}
	snapshot := CloneNotes(m.notes)
	m.mu.Unlock()

	m.logger.Info("collection loaded", zap.Int("count", len(snapshot)))
	m.broker.publish(Change{Kind: ChangeLoad, Notes: snapshot, Timestamp: m.opts.clock().Unix()})
	return CloneNotes(snapshot), nil
}

// admit filters fetched records down to a valid collection: committed only,
// unique by ID, sorted.
func (m *Manager) admit(fetched []Note) []Note {
	seen := make(map[string]bool, len(fetched))
	notes := make([]Note, 0, len(fetched))
	for _, n := range fetched {
		if !n.Committed() {
			m.logger.Warn("dropping uncommitted record", zap.String("id", n.ID))
			continue
		}
		if n.ID == "" {
			n.ID = NewID()
			m.logger.Warn("record without identity, assigned one", zap.String("id", n.ID))
		}
		if seen[n.ID] {
			m.logger.Warn("dropping duplicate record", zap.String("id", n.ID))
			continue
		}
		seen[n.ID] = true
		notes = append(notes, n.Clone())
	}
	SortNotes(notes)
	return notes
}

// Loaded reports whether LoadInitial has succeeded.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Snapshot returns a copy of the current collection.
func (m *Manager) Snapshot() []Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CloneNotes(m.notes)
}

// Note returns a copy of the draft or member identified by id.
func (m *Manager) Note(id string) (Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.lookup(id)
	if err != nil {
		return Note{}, err
	}
	return n.Clone(), nil
}

// Draft returns the pending draft, if any.
func (m *Manager) Draft() (Note, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.draft == nil {
		return Note{}, false
	}
	return m.draft.Clone(), true
}

// BeginDraft creates a new note that joins the collection on its first
// Commit. Only one draft may be outstanding.
func (m *Manager) BeginDraft() (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Note{}, ErrClosed
	}
	if m.draft != nil {
		return Note{}, invalidState("draft %s is still pending", m.draft.ID)
	}

	n := Note{
		ID:        NewID(),
		CreatedAt: m.opts.clock().Round(0),
	}
	m.draft = &n
	m.logger.Debug("draft started", zap.String("id", n.ID))
	return n.Clone(), nil
}

// DiscardDraft drops the pending draft without saving.
func (m *Manager) DiscardDraft() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.draft == nil {
		return invalidState("no pending draft")
	}
	m.logger.Debug("draft discarded", zap.String("id", m.draft.ID))
	m.draft = nil
	return nil
}

// Update replaces the text fields of a draft or member. It neither saves
// nor notifies; Commit does.
func (m *Manager) Update(id, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.target(id)
	if err != nil {
		return err
	}
	n.Title = title
	n.Body = body
	return nil
}

// AddImage appends img to the note's images.
func (m *Manager) AddImage(id string, img Image) error {
	if len(img) == 0 {
		return invalidState("empty image")
	}

	data := bytes.Clone(img)
	if m.opts.normalizer != nil {
		normalized, err := m.opts.normalizer.Normalize(data)
		if err != nil {
			return fmt.Errorf("failed to normalize image: %w", err)
		}
		data = normalized
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.target(id)
	if err != nil {
		return err
	}
	n.Images = append(n.Images, data)
	return nil
}

// RemoveImage deletes the image at index. Remaining images are re-indexed
// from 0 without gaps, so any index held by the caller must be refreshed.
func (m *Manager) RemoveImage(id string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.target(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(n.Images) {
		return notFound("image %d of note %s (has %d)", index, id, len(n.Images))
	}
	n.Images = append(n.Images[:index], n.Images[index+1:]...)
	return nil
}

// Commit stamps the note as edited now, inserts it when it is the pending
// draft, re-sorts and queues a save of the whole collection.
func (m *Manager) Commit(id string) (*Pending, error) {
	m.mu.Lock()
	if err := m.writable(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	isDraft := m.draft != nil && m.draft.ID == id
	idx := -1
	if !isDraft {
		idx = m.indexOf(id)
		if idx < 0 {
			m.mu.Unlock()
			return nil, notFound("commit %s", id)
		}
	}

	stamp := m.stamp()
	if isDraft {
		n := *m.draft
		n.EditedAt = &stamp
		m.notes = append(m.notes, n)
		m.draft = nil
	} else {
		m.notes[idx].EditedAt = &stamp
	}
	SortNotes(m.notes)

	pending, snapshot := m.persist()
	m.mu.Unlock()

	m.logger.Debug("note committed", zap.String("id", id), zap.Bool("first", isDraft))
	m.broker.publish(Change{Kind: ChangeCommit, ID: id, Notes: snapshot, Timestamp: stamp.Unix()})
	return pending, nil
}

// Delete removes a member and queues a save. Deleting the pending draft
// discards it; nothing is saved because the collection is unchanged.
func (m *Manager) Delete(id string) (*Pending, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.draft != nil && m.draft.ID == id {
		m.draft = nil
		m.mu.Unlock()
		m.logger.Debug("draft deleted before commit", zap.String("id", id))
		return resolvedPending(nil), nil
	}
	if err := m.writable(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return nil, notFound("delete %s", id)
	}
	m.notes = append(m.notes[:idx], m.notes[idx+1:]...)

	pending, snapshot := m.persist()
	m.mu.Unlock()

	m.logger.Debug("note deleted", zap.String("id", id))
	m.broker.publish(Change{Kind: ChangeDelete, ID: id, Notes: snapshot, Timestamp: m.opts.clock().Unix()})
	return pending, nil
}

// DeleteAll empties the collection and queues a save of the empty set.
// The pending draft, if any, is kept.
func (m *Manager) DeleteAll() (*Pending, error) {
	m.mu.Lock()
	if err := m.writable(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.notes = m.notes[:0]
	pending, snapshot := m.persist()
	m.mu.Unlock()

	m.logger.Debug("collection cleared")
	m.broker.publish(Change{Kind: ChangeDeleteAll, Notes: snapshot, Timestamp: m.opts.clock().Unix()})
	return pending, nil
}

// Subscribe registers a change listener.
func (m *Manager) Subscribe(listener func(Change)) (unsubscribe func()) {
	return m.broker.Subscribe(listener)
}

// Watch streams changes until ctx ends.
func (m *Manager) Watch(ctx context.Context) <-chan Change {
	return m.broker.Watch(ctx)
}

// Close stops accepting mutations and waits for queued saves. A store that
// implements io.Closer is closed afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	already := m.closed
	m.closed = true
	m.mu.Unlock()

	err := m.writer.close(ctx)
	if already {
		return err
	}
	if closer, ok := m.store.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close store: %w", cerr)
		}
	}
	return err
}

// persist queues a save of the current collection. Caller holds m.mu and
// has checked writable, so the writer is still accepting jobs.
func (m *Manager) persist() (*Pending, []Note) {
	snapshot := CloneNotes(m.notes)
	pending, err := m.writer.submit(CloneNotes(snapshot))
	if err != nil {
		pending = resolvedPending(&PersistenceError{Op: "save", Err: err})
	}
	return pending, snapshot
}

func (m *Manager) writable() error {
	if m.closed {
		return ErrClosed
	}
	if !m.loaded {
		return invalidState("collection not loaded")
	}
	return nil
}

// stamp returns a commit time strictly after the previous one.
func (m *Manager) stamp() time.Time {
	now := m.opts.clock().Round(0)
	if !now.After(m.lastStamp) {
		now = m.lastStamp.Add(time.Nanosecond)
	}
	m.lastStamp = now
	return now
}

func (m *Manager) indexOf(id string) int {
	for i := range m.notes {
		if m.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// target returns a pointer to the draft or member for in-place edits.
func (m *Manager) target(id string) (*Note, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if m.draft != nil && m.draft.ID == id {
		return m.draft, nil
	}
	if idx := m.indexOf(id); idx >= 0 {
		return &m.notes[idx], nil
	}
	return nil, notFound("note %s", id)
}

func (m *Manager) lookup(id string) (Note, error) {
	if m.draft != nil && m.draft.ID == id {
		return *m.draft, nil
	}
	if idx := m.indexOf(id); idx >= 0 {
		return m.notes[idx], nil
	}
	return Note{}, notFound("note %s", id)
}
