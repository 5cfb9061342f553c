package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/protocol"
)

type stubSink struct {
	id string
}

func (s *stubSink) Push(frame protocol.Frame) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	reg := New()

	sink := &stubSink{id: "a"}
	prev, superseded := reg.Register("user-1", sink)
	assert.Nil(t, prev)
	assert.False(t, superseded)

	got, ok := reg.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, sink, got.(*stubSink))
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Lookup("user-2")
	assert.False(t, ok)
}

func TestRegisterSupersedes(t *testing.T) {
	reg := New()

	first := &stubSink{id: "first"}
	second := &stubSink{id: "second"}
	reg.Register("user-1", first)

	prev, superseded := reg.Register("user-1", second)
	require.True(t, superseded)
	assert.Same(t, first, prev.(*stubSink))

	got, ok := reg.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, second, got.(*stubSink))
	assert.Equal(t, 1, reg.Len())
}

func TestUnregisterOnlyRemovesCurrentSink(t *testing.T) {
	reg := New()

	stale := &stubSink{id: "stale"}
	current := &stubSink{id: "current"}
	reg.Register("user-1", stale)
	reg.Register("user-1", current)

	// The stale connection's cleanup must not clobber the newer session.
	assert.False(t, reg.Unregister("user-1", stale))
	got, ok := reg.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, current, got.(*stubSink))

	assert.True(t, reg.Unregister("user-1", current))
	_, ok = reg.Lookup("user-1")
	assert.False(t, ok)

	// Unregistering again is a no-op.
	assert.False(t, reg.Unregister("user-1", current))
}

func TestConcurrentRegistrationsKeepOneEntry(t *testing.T) {
	reg := New()

	const workers = 32
	sinks := make([]*stubSink, workers)
	for i := range sinks {
		sinks[i] = &stubSink{id: fmt.Sprintf("sink-%d", i)}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register("user-1", sinks[i])
			reg.Lookup("user-1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
	got, ok := reg.Lookup("user-1")
	require.True(t, ok)

	// The surviving sink must be one of the registered ones.
	found := false
	for _, s := range sinks {
		if got.(*stubSink) == s {
			found = true
			break
		}
	}
	assert.True(t, found)
}
