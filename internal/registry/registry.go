// Package registry implements the client registry: a doubly-linked set of
// live client workers guarded by one mutex, used by the signal thread and
// the operator console to broadcast cancellation across the whole fleet.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Client is one registry entry. SessionID exists only for log/metrics
// correlation; it has no protocol meaning.
type Client struct {
	SessionID uuid.UUID

	cancel context.CancelFunc
	prev   *Client
	next   *Client
}

// Cancel asynchronously cancels this client's worker context. Safe to
// call concurrently with the worker's own exit.
func (c *Client) Cancel() {
	c.cancel()
}

// Registry is the doubly-linked client list. The zero value is ready to
// use.
type Registry struct {
	mu   sync.Mutex
	head *Client
	tail *Client
	size int
}

// New constructs a Client bound to a cancellable child of parent. The
// returned context is what the worker should use for its cancellation
// points; calling Cancel or a Registry-wide Broadcast cancels it.
func New(parent context.Context) (*Client, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Client{SessionID: uuid.New(), cancel: cancel}, ctx
}

// Enroll appends client to the tail of the registry. A worker must be
// enrolled before it performs any cancellable operation.
func (r *Registry) Enroll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.prev = r.tail
	c.next = nil
	if r.tail != nil {
		r.tail.next = c
	} else {
		r.head = c
	}
	r.tail = c
	r.size++
}

// Withdraw unlinks client from the registry. A worker must not withdraw
// itself until it has stopped performing cancellable work, per the
// ordering invariant in the design.
func (r *Registry) Withdraw(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.prev != nil {
		c.prev.next = c.next
	} else if r.head == c {
		r.head = c.next
	}

	if c.next != nil {
		c.next.prev = c.prev
	} else if r.tail == c {
		r.tail = c.prev
	}

	c.prev, c.next = nil, nil
	r.size--
}

// BroadcastCancel delivers an asynchronous cancellation to every
// currently-enrolled client. It holds only the registry mutex while
// iterating, never a store-node lock, so it cannot deadlock against the
// tree.
func (r *Registry) BroadcastCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := r.head; c != nil; c = c.next {
		c.Cancel()
	}
}

// Len reports the number of currently-enrolled clients. Used for
// telemetry only.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
