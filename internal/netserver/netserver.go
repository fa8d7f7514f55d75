// Package netserver implements the TCP accept loop that turns inbound
// connections into worker.Worker instances. It is a boundary component
// per the design (the wire protocol and listener are external
// collaborators to the concurrency core) but is implemented here so the
// server runs end to end.
package netserver

import (
	"context"
	"net"

	"github.com/nbtaylor/treedb/internal/worker"
	"github.com/nbtaylor/treedb/pkg/log"
)

// Server owns the listener and spawns one worker goroutine per accepted
// connection.
type Server struct {
	listener  net.Listener
	newWorker func(conn net.Conn) *worker.Worker
}

// New binds addr and returns a Server. newWorker is called once per
// accepted connection to build the worker.Worker that will service it.
func New(addr string, newWorker func(conn net.Conn) *worker.Worker) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: l, newWorker: newWorker}, nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, spawning a goroutine per connection. It returns once accepting
// has stopped.
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Errorf("netserver: accept: %s", err)
				return
			}
		}

		w := s.newWorker(conn)
		go w.Run(ctx)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
