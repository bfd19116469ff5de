package view

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_LastRequestWins(t *testing.T) {
	tr := NewTracker()

	first := tr.Begin("type")
	second := tr.Begin("type")
	other := tr.Begin("year")

	assert.False(t, first.Current(), "superseded ticket must be stale")
	assert.True(t, second.Current())
	assert.True(t, other.Current(), "keys are independent")
	assert.False(t, Ticket{}.Current())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Begin("k")
		}()
	}
	wg.Wait()
	last := tr.Begin("k")
	assert.True(t, last.Current())
}

func TestRegistry_OpenLookup(t *testing.T) {
	r := NewRegistry(10, time.Minute, nil)
	inst := r.Open("p1", PageCategories)

	got, err := r.Lookup(inst.ID, "p1", PageCategories)
	require.NoError(t, err)
	assert.Same(t, inst, got)

	_, err = r.Lookup(inst.ID, "p2", PageCategories)
	assert.ErrorIs(t, err, ErrForeign)

	_, err = r.Lookup(inst.ID, "p1", PageUsers)
	assert.ErrorIs(t, err, ErrForeign)

	_, err = r.Lookup("missing", "p1", PageCategories)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_InstancesAreIndependent(t *testing.T) {
	r := NewRegistry(10, time.Minute, nil)
	a := r.Open("p1", PageProfile)
	b := r.Open("p1", PageProfile)

	require.NotEqual(t, a.ID, b.ID)
	a.Once.Fire("profile:fetch", func() {})
	assert.False(t, b.Once.Fired("profile:fetch"))

	a.Selection.Set().Toggle("1")
	assert.Equal(t, 0, b.Selection.Set().Len())
}

func TestRegistry_ResolveReopensExpired(t *testing.T) {
	r := NewRegistry(10, time.Minute, nil)
	inst := r.Open("p1", PageUsers)

	same, fresh := r.Resolve(inst.ID, "p1", PageUsers)
	assert.False(t, fresh)
	assert.Same(t, inst, same)

	other, fresh := r.Resolve("gone", "p1", PageUsers)
	assert.True(t, fresh)
	assert.NotEqual(t, inst.ID, other.ID)
	assert.Equal(t, 2, r.Size())
}

func TestRegistry_DropProfile(t *testing.T) {
	r := NewRegistry(10, time.Minute, nil)
	r.Open("p1", PageUsers)
	r.Open("p1", PageCategories)
	keep := r.Open("p2", PageUsers)

	assert.Equal(t, 2, r.DropProfile("p1"))
	assert.Equal(t, 1, r.Size())
	_, err := r.Lookup(keep.ID, "p2", PageUsers)
	assert.NoError(t, err)
}

func TestRegistry_CapacityEvictsOldest(t *testing.T) {
	r := NewRegistry(2, time.Minute, nil)
	first := r.Open("p", PageUsers)
	r.Open("p", PageUsers)
	r.Open("p", PageUsers)

	assert.Equal(t, 2, r.Size())
	_, err := r.Lookup(first.ID, "p", PageUsers)
	assert.ErrorIs(t, err, ErrNotFound)
}
