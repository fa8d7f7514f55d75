package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtaylor/treedb/internal/registry"
)

func TestEnterRejectedWhilePurging(t *testing.T) {
	var reg registry.Registry
	s := New(&reg)
	require.True(t, s.Accepting())

	c1, _ := registry.New(context.Background())
	require.True(t, s.Enter(c1))
	s.Leave(c1)

	// Block a worker inside Purge's drain loop by holding one live count.
	c2, _ := registry.New(context.Background())
	require.True(t, s.Enter(c2))
	done := make(chan struct{})
	go func() {
		s.Purge(true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	c3, _ := registry.New(context.Background())
	assert.False(t, s.Enter(c3), "no admission should occur while accepting is false")
	assert.Equal(t, 1, reg.Len(), "a rejected Enter must not have enrolled its client (only c2 remains)")

	s.Leave(c2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Purge did not return once the fleet drained")
	}
	assert.True(t, s.Accepting(), "signal-driven purge must leave accepting true")
}

func TestPurgeShutdownLeavesNotAccepting(t *testing.T) {
	var reg registry.Registry
	s := New(&reg)
	s.Purge(false)
	assert.False(t, s.Accepting())
	assert.Equal(t, 0, s.LiveWorkers())
}

func TestPurgeDrainsRegisteredWorkers(t *testing.T) {
	var reg registry.Registry
	s := New(&reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		c, ctx := registry.New(context.Background())
		require.True(t, s.Enter(c))

		wg.Add(1)
		go func(ctx context.Context, c *registry.Client) {
			defer wg.Done()
			<-ctx.Done()
			s.Leave(c)
		}(ctx, c)
	}

	s.Purge(false)
	wg.Wait()

	assert.Equal(t, 0, s.LiveWorkers())
	assert.Equal(t, 0, reg.Len())
}

// TestEnterEnrollsAtomicallyWithAdmission reproduces the race a
// non-atomic TryEnter()+Registry.Enroll() would allow: a Purge that runs
// between admission and enrollment would broadcast-cancel a registry
// that doesn't yet contain the new worker, leaving it uncancelled while
// still counted in live, hanging the drain loop forever. Enter must make
// that gap impossible.
func TestEnterEnrollsAtomicallyWithAdmission(t *testing.T) {
	var reg registry.Registry
	s := New(&reg)

	for i := 0; i < 200; i++ {
		c, ctx := registry.New(context.Background())
		require.True(t, s.Enter(c))
		require.Equal(t, 1, reg.Len(), "client must already be enrolled the instant Enter returns true")

		done := make(chan struct{})
		go func() {
			<-ctx.Done()
			s.Leave(c)
			close(done)
		}()

		s.Purge(true)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Purge did not drain: worker was admitted without being enrolled")
		}
	}
}
