// Package signalthread implements the single goroutine dedicated to
// receiving the interrupt signal and triggering a fleet purge without
// terminating the process, grounded on the original server's
// monitor_signal/sig_handler_constructor.
//
// Go has no per-goroutine signal masking: os/signal.Notify is process-wide
// by construction. The idiomatic equivalent of "only one thread ever
// observes SIGINT" is for exactly one goroutine to own the notification
// channel and for every other goroutine to simply never call
// signal.Notify — which is what the rest of this module does.
package signalthread

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nbtaylor/treedb/internal/supervisor"
	"github.com/nbtaylor/treedb/pkg/log"
)

// Thread watches for SIGINT/SIGTERM and purges sup on each receipt,
// leaving the server accepting connections again afterward.
type Thread struct {
	sup    *supervisor.Supervisor
	sigs   chan os.Signal
	done   chan struct{}
	stopCh chan struct{}
}

// Start begins watching for signals in a new goroutine and returns
// immediately.
func Start(sup *supervisor.Supervisor) *Thread {
	t := &Thread{
		sup:    sup,
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
	signal.Notify(t.sigs, syscall.SIGINT, syscall.SIGTERM)

	go t.run()
	return t
}

func (t *Thread) run() {
	defer close(t.done)
	for {
		select {
		case <-t.sigs:
			log.Note("signal thread: interrupt received, purging client fleet")
			t.sup.Purge(true)
		case <-t.stopCh:
			return
		}
	}
}

// Stop tears down the signal thread. It does not itself purge anything;
// shutdown's own purge (supervisor.Purge(false)) happens separately.
func (t *Thread) Stop() {
	signal.Stop(t.sigs)
	close(t.stopCh)
	<-t.done
}
