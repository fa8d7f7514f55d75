package pausegate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitPassesThroughWhenReleased(t *testing.T) {
	g := New()
	err := g.Wait(context.Background())
	require.NoError(t, err)
}

func TestStopBlocksUntilRelease(t *testing.T) {
	g := New()
	g.Stop()

	released := make(chan struct{})
	go func() {
		_ = g.Wait(context.Background())
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Wait must block while the gate is stopped")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}
}

func TestWaitIsCancellable(t *testing.T) {
	g := New()
	g.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestReleaseWakesAllWaiters(t *testing.T) {
	g := New()
	g.Stop()

	var wg sync.WaitGroup
	n := 8
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = g.Wait(context.Background())
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	g.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were released")
	}
}
