package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angga0x/ownchat/internal/models"
)

// fakeHandle records sent events for assertions across the ws tests.
type fakeHandle struct {
	mu      sync.Mutex
	events  []models.ServerEvent
	closed  bool
	sendErr error
}

func (f *fakeHandle) Send(event models.ServerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) Events() []models.ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ServerEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeHandle) eventsOfType(eventType string) []models.ServerEvent {
	var out []models.ServerEvent
	for _, e := range f.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestRegistryBindAndLookup(t *testing.T) {
	registry := NewRegistry()
	h := &fakeHandle{}

	_, ok := registry.Lookup(1)
	require.False(t, ok)

	registry.Bind(1, h)
	got, ok := registry.Lookup(1)
	require.True(t, ok)
	assert.Same(t, h, got.(*fakeHandle))
}

func TestRegistryRebindSupersedesAndCloses(t *testing.T) {
	registry := NewRegistry()
	old := &fakeHandle{}
	replacement := &fakeHandle{}

	registry.Bind(1, old)
	registry.Bind(1, replacement)

	got, ok := registry.Lookup(1)
	require.True(t, ok)
	assert.Same(t, replacement, got.(*fakeHandle))
	assert.True(t, old.closed, "superseded handle must be closed")
	assert.False(t, replacement.closed)
}

func TestRegistryUnbindGuardsAgainstStaleHandle(t *testing.T) {
	registry := NewRegistry()
	old := &fakeHandle{}
	replacement := &fakeHandle{}

	registry.Bind(1, old)
	registry.Bind(1, replacement)

	// The superseded connection's teardown must not evict the new binding.
	assert.False(t, registry.Unbind(1, old))
	got, ok := registry.Lookup(1)
	require.True(t, ok)
	assert.Same(t, replacement, got.(*fakeHandle))

	assert.True(t, registry.Unbind(1, replacement))
	_, ok = registry.Lookup(1)
	assert.False(t, ok)
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	registry := NewRegistry()
	registry.Bind(1, &fakeHandle{})
	registry.Bind(2, &fakeHandle{})

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 2)

	delete(snapshot, 1)
	_, ok := registry.Lookup(1)
	assert.True(t, ok, "mutating the snapshot must not touch the registry")
}
