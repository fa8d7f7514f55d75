// Package supervisor implements the Server Supervisor: the
// live-worker-count/accepting-flag barrier that both the signal thread
// and the operator console use to purge the client fleet, and that gates
// final teardown of shared state on every worker having exited.
package supervisor

import (
	"sync"

	"github.com/nbtaylor/treedb/internal/registry"
)

// Supervisor tracks live worker count and whether new connections should
// be admitted. The zero value is not usable; use New.
type Supervisor struct {
	mu        sync.Mutex
	cond      *sync.Cond
	live      int
	accepting bool
	reg       *registry.Registry
}

// New returns a Supervisor that starts in the accepting state, bound to
// reg: Enter/Leave/Purge all act on reg under the same mutex that guards
// admission, so the registry and the live count never disagree.
func New(reg *registry.Registry) *Supervisor {
	s := &Supervisor{accepting: true, reg: reg}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enter admits one more worker if the supervisor is still accepting. On
// success it increments the live count and enrolls c in the registry in
// the same critical section used by Purge's accepting-flag flip and
// broadcast-cancel, so a worker counted in live is always visible to a
// concurrent Purge. On failure it returns false and c is left
// unenrolled; the caller must not perform any cancellable work.
func (s *Supervisor) Enter(c *registry.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting {
		return false
	}
	s.live++
	s.reg.Enroll(c)
	return true
}

// Leave withdraws c from the registry and decrements the live worker
// count in the same critical section, waking Purge's drain loop once
// the count reaches zero.
func (s *Supervisor) Leave(c *registry.Client) {
	s.mu.Lock()
	s.reg.Withdraw(c)
	s.live--
	if s.live == 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

// LiveWorkers reports the current live count, for telemetry.
func (s *Supervisor) LiveWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Accepting reports whether new connections are currently admitted.
func (s *Supervisor) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepting
}

// Purge stops admission, cancels every enrolled worker, and blocks until
// the fleet has fully drained. If resume is true (the signal-driven
// path), accepting is turned back on before Purge returns and the server
// keeps running; if false (the shutdown path), accepting is left off.
// accepting is cleared and BroadcastCancel is issued under the same lock
// Enter/Leave use, so no worker can be admitted into a gap between the
// two, and every worker ever counted in live is guaranteed enrolled by
// the time BroadcastCancel runs over it.
func (s *Supervisor) Purge(resume bool) {
	s.mu.Lock()
	s.accepting = false
	s.reg.BroadcastCancel()

	for s.live > 0 {
		s.cond.Wait()
	}
	if resume {
		s.accepting = true
	}
	s.mu.Unlock()
}
