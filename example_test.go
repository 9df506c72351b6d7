package notebook_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/notebook"
)

// Example_basic opens a notebook, commits a note and reopens it.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "notebook-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()

	m, err := notebook.Open(ctx, tmpDir, notebook.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}

	// 1. A draft joins the collection on its first commit
	draft, err := m.BeginDraft()
	if err != nil {
		log.Fatal(err)
	}
	if err := m.Update(draft.ID, "Hello", "This is my first note."); err != nil {
		log.Fatal(err)
	}
	pending, err := m.Commit(draft.ID)
	if err != nil {
		log.Fatal(err)
	}
	if err := pending.Wait(ctx); err != nil {
		log.Fatal(err)
	}
	if err := m.Close(ctx); err != nil {
		log.Fatal(err)
	}

	// 2. Read it back
	reopened, err := notebook.Open(ctx, tmpDir, notebook.WithVersioning(false))
	if err != nil {
		log.Fatal(err)
	}
	defer reopened.Close(ctx)

	for _, n := range reopened.Snapshot() {
		fmt.Printf("Found note: %s\n", n.Title)
	}
	// Output:
	// Found note: Hello
}

// Example_subscribe shows change notifications.
func Example_subscribe() {
	ctx := context.Background()
	m, err := notebook.Open(ctx, "", notebook.WithAdapter("memory"))
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close(ctx)

	unsubscribe := m.Subscribe(func(c notebook.Change) {
		fmt.Printf("%s: %d notes\n", c.Kind, len(c.Notes))
	})
	defer unsubscribe()

	d, _ := m.BeginDraft()
	_, _ = m.Commit(d.ID)
	_, _ = m.DeleteAll()
	// Output:
	// COMMIT: 1 notes
	// DELETE_ALL: 0 notes
}
