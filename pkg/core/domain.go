// Package core holds the note model, the persistence port and the Manager
// that owns the canonical in-memory collection.
package core

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Image is a single attached image payload.
type Image []byte

// Note is the central entity of the domain.
// Title and Body are optional; the empty string means absent.
type Note struct {
	ID        string
	Title     string
	Body      string
	Images    []Image
	CreatedAt time.Time
	EditedAt  *time.Time
}

// NewID returns a fresh note identity.
func NewID() string {
	return uuid.NewString()
}

// Committed reports whether the note has been committed at least once.
func (n Note) Committed() bool {
	return n.EditedAt != nil
}

// Clone returns a deep copy of the note. Callers never share image buffers
// with the Manager.
func (n Note) Clone() Note {
	c := n
	if n.EditedAt != nil {
		t := *n.EditedAt
		c.EditedAt = &t
	}
	if n.Images != nil {
		c.Images = make([]Image, len(n.Images))
		for i, img := range n.Images {
			c.Images[i] = bytes.Clone(img)
		}
	}
	return c
}

// LastTouched is the edited time when present, else the creation time.
func (n Note) LastTouched() time.Time {
	if n.EditedAt != nil {
		return *n.EditedAt
	}
	return n.CreatedAt
}

// CloneNotes deep copies a slice of notes.
func CloneNotes(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// ChangeKind represents the type of change applied to the collection.
type ChangeKind string

const (
	ChangeLoad      ChangeKind = "LOAD"
	ChangeCommit    ChangeKind = "COMMIT"
	ChangeDelete    ChangeKind = "DELETE"
	ChangeDeleteAll ChangeKind = "DELETE_ALL"
)

// Change is delivered to listeners after every membership or order change.
// Notes is the full ordered collection, not a diff.
type Change struct {
	Kind      ChangeKind
	ID        string // empty for LOAD and DELETE_ALL
	Notes     []Note
	Timestamp int64 // Unix timestamp
}

func (c Change) String() string {
	if c.ID == "" {
		return fmt.Sprintf("%s (%d notes)", c.Kind, len(c.Notes))
	}
	return fmt.Sprintf("%s %s (%d notes)", c.Kind, c.ID, len(c.Notes))
}

// EventType represents the type of change observed on a backing store.
type EventType string

const (
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event is a change observed on a store from outside the process.
type Event struct {
	Type      EventType
	Path      string
	Timestamp int64 // Unix timestamp
}
