package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/core"
)

func TestBroker_Unsubscribe(t *testing.T) {
	m, _ := setup(t, nil)

	calls := 0
	unsubscribe := m.Subscribe(func(core.Change) { calls++ })
	unsubscribe()
	unsubscribe()

	_, err := m.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls)
	assert.Zero(t, m.State().(core.ManagerState).Listeners)
}

func TestBroker_ListenersGetPrivateCopies(t *testing.T) {
	m, _ := setup(t, []core.Note{{ID: "a", Title: "original", EditedAt: at(1)}})

	m.Subscribe(func(c core.Change) { c.Notes[0].Title = "tampered" })

	var seen string
	m.Subscribe(func(c core.Change) { seen = c.Notes[0].Title })

	_, err := m.LoadInitial(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "original", seen)
	n, err := m.Note("a")
	require.NoError(t, err)
	assert.Equal(t, "original", n.Title)
}

func TestBroker_WatchDropsOldestWhenFull(t *testing.T) {
	m, _ := setup(t, nil, core.WithEventBuffer(2))
	_, err := m.LoadInitial(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch := m.Watch(ctx)

	for i := 0; i < 5; i++ {
		d, err := m.BeginDraft()
		require.NoError(t, err)
		_, err = m.Commit(d.ID)
		require.NoError(t, err)
	}

	first := <-ch
	second := <-ch
	assert.Len(t, first.Notes, 4)
	assert.Len(t, second.Notes, 5, "the newest change is never dropped")

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
