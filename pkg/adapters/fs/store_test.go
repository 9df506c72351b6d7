package fs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/adapters/fs"
	"github.com/aretw0/notebook/pkg/core"
	"github.com/aretw0/notebook/pkg/git"
)

func ts(sec int, nsec int) *time.Time {
	t := time.Date(2024, 5, 1, 12, 0, sec, nsec, time.UTC)
	return &t
}

func sampleNotes() []core.Note {
	return []core.Note{
		{
			ID:        "0b6a3f5e-1111-4c1e-9a53-000000000001",
			Title:     "Groceries",
			Body:      "milk\neggs",
			Images:    []core.Image{core.Image("png-bytes"), {0x00, 0xff}},
			CreatedAt: *ts(1, 0),
			EditedAt:  ts(30, 123456789),
		},
		{
			ID:        "0b6a3f5e-1111-4c1e-9a53-000000000002",
			Body:      "no title",
			CreatedAt: *ts(2, 0),
			EditedAt:  ts(20, 0),
		},
	}
}

func newStore(t *testing.T, snapshot string) *fs.Store {
	t.Helper()
	s := fs.NewStore(fs.Config{Path: t.TempDir(), Snapshot: snapshot})
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	for _, snapshot := range []string{"notes.cbor", "notes.json", "notes.yaml"} {
		t.Run(snapshot, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, snapshot)

			require.NoError(t, s.SaveAll(ctx, sampleNotes()))

			got, err := s.FetchAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)

			want := sampleNotes()
			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID)
				assert.Equal(t, want[i].Title, got[i].Title)
				assert.Equal(t, want[i].Body, got[i].Body)
				assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
				require.NotNil(t, got[i].EditedAt)
				assert.True(t, want[i].EditedAt.Equal(*got[i].EditedAt), "edit time must keep nanoseconds")
				require.Len(t, got[i].Images, len(want[i].Images))
				for j := range want[i].Images {
					assert.Equal(t, want[i].Images[j], got[i].Images[j])
				}
			}
		})
	}
}

func TestStore_MissingSnapshotIsEmpty(t *testing.T) {
	s := newStore(t, "")

	notes, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestStore_SaveEmptySet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "")

	require.NoError(t, s.SaveAll(ctx, sampleNotes()))
	require.NoError(t, s.SaveAll(ctx, nil))

	notes, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestStore_RepairsMissingCreationTime(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "notes.json")

	notes := sampleNotes()[:1]
	notes[0].CreatedAt = time.Time{}
	require.NoError(t, s.SaveAll(ctx, notes))

	got, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CreatedAt.Equal(*notes[0].EditedAt))
}

func TestStore_MalformedImageBlobIsLenient(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "notes.json")

	raw := `{"version": 1, "notes": [{"id": "a", "body": "kept", "images": "bm90IGNib3I=", "created_at": "2024-05-01T12:00:00Z", "edited_at": "2024-05-01T12:00:01Z"}]}`
	require.NoError(t, os.WriteFile(s.SnapshotPath(), []byte(raw), 0644))

	notes, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "kept", notes[0].Body)
	assert.Empty(t, notes[0].Images)
}

func TestStore_CorruptSnapshotFails(t *testing.T) {
	s := newStore(t, "notes.cbor")
	require.NoError(t, os.WriteFile(s.SnapshotPath(), []byte("not a snapshot"), 0644))

	_, err := s.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestStore_UnknownFormat(t *testing.T) {
	s := fs.NewStore(fs.Config{Path: t.TempDir(), Snapshot: "notes.txt"})
	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no serializer")
}

func TestStore_MustExist(t *testing.T) {
	s := fs.NewStore(fs.Config{Path: filepath.Join(t.TempDir(), "nope"), MustExist: true})
	assert.Error(t, s.Initialize(context.Background()))
}

func TestStore_CancelledSave(t *testing.T) {
	s := newStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SaveAll(ctx, sampleNotes()), context.Canceled)
	_, err := os.Stat(s.SnapshotPath())
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Versioning(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	s := fs.NewStore(fs.Config{Path: t.TempDir(), Versioning: true, AutoInit: true})
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.SaveAll(ctx, sampleNotes()))
	require.NoError(t, s.SaveAll(ctx, sampleNotes()), "unchanged snapshot is not an error")
	require.NoError(t, s.SaveAll(ctx, sampleNotes()[:1]))

	history, err := s.History(10)
	require.NoError(t, err)
	require.Len(t, history, 3, "ignore setup plus two distinct snapshots")
	assert.Contains(t, history[0], "save 1 note")
	assert.Contains(t, history[1], "save 2 notes")

	state := s.State().(fs.StoreState)
	assert.True(t, state.Versioning)
	assert.Equal(t, uint64(3), state.Saves)
}

func TestStore_StaleLockFailsSave(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	s := fs.NewStore(fs.Config{Path: dir, Versioning: true, AutoInit: true, LockTimeout: 50 * time.Millisecond})
	require.NoError(t, s.Initialize(ctx))

	lock := filepath.Join(dir, fs.DefaultSystemDir, git.DefaultLockName)
	require.NoError(t, os.WriteFile(lock, nil, 0644))

	start := time.Now()
	err := s.SaveAll(ctx, sampleNotes())
	assert.ErrorIs(t, err, git.ErrLockTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, statErr := os.Stat(s.SnapshotPath())
	assert.True(t, os.IsNotExist(statErr), "nothing written without the lock")

	require.NoError(t, os.Remove(lock))
	require.NoError(t, s.SaveAll(ctx, sampleNotes()))
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newStore(t, "notes.json")
	events, err := s.Watch(ctx)
	require.NoError(t, err)

	t.Run("Own writes are silent", func(t *testing.T) {
		require.NoError(t, s.SaveAll(ctx, sampleNotes()))
		select {
		case e := <-events:
			t.Fatalf("unexpected event for own write: %+v", e)
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("External write is reported", func(t *testing.T) {
		other := fs.NewStore(fs.Config{Path: s.Path, Snapshot: "notes.json"})
		require.NoError(t, other.SaveAll(ctx, sampleNotes()[:1]))

		select {
		case e := <-events:
			assert.Equal(t, core.EventModify, e.Type)
			assert.Equal(t, s.SnapshotPath(), e.Path)
		case <-time.After(3 * time.Second):
			t.Fatal("no event for external write")
		}
	})

	t.Run("Removal is reported", func(t *testing.T) {
		require.NoError(t, os.Remove(s.SnapshotPath()))

		select {
		case e := <-events:
			assert.Equal(t, core.EventDelete, e.Type)
		case <-time.After(3 * time.Second):
			t.Fatal("no event for removal")
		}
	})

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStore_WatchClosesWithPendingEvents(t *testing.T) {
	s := newStore(t, "notes.json")

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		events, err := s.Watch(ctx)
		require.NoError(t, err)

		// Unread external writes leave debounced callbacks in flight.
		other := fs.NewStore(fs.Config{Path: s.Path, Snapshot: "notes.json"})
		notes := sampleNotes()
		notes[0].Title = fmt.Sprintf("round %d", i)
		require.NoError(t, other.SaveAll(context.Background(), notes))
		time.Sleep(time.Duration(i%4) * 20 * time.Millisecond)
		cancel()

		closed := make(chan struct{})
		go func() {
			for range events {
			}
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(3 * time.Second):
			t.Fatalf("round %d: events not closed after cancel", i)
		}
	}
}
