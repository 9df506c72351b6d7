// Package notebook is the composition root of a small note-taking core.
//
// It connects the domain (pkg/core: the note model, the ordered collection
// and its change notifications) with the storage adapters (pkg/adapters)
// using the Hexagonal Architecture pattern.
//
// The collection is kept sorted by last edit, newest first. Notes that were
// never committed do not belong to it: a new note is a draft until its first
// Commit. Every Commit or Delete persists the whole collection through a
// single background writer and notifies listeners with the new ordered list.
//
// Usage:
//
//	m, err := notebook.Open(ctx, "./notes",
//		notebook.WithAutoInit(true),
//		notebook.WithLogger(logger),
//	)
//	defer m.Close(ctx)
//
//	draft, _ := m.BeginDraft()
//	_ = m.Update(draft.ID, "Groceries", "milk, eggs")
//	pending, _ := m.Commit(draft.ID)
//	err = pending.Wait(ctx)
package notebook
