// Package worker implements the per-connection client loop: enrollment,
// the pause-gate wait, command dispatch, and orderly cleanup on any exit
// path, grounded on the original server's run_client/thread_cleanup.
package worker

import (
	"bufio"
	"context"
	"io"
	"net"

	"github.com/nbtaylor/treedb/internal/pausegate"
	"github.com/nbtaylor/treedb/internal/protocol"
	"github.com/nbtaylor/treedb/internal/registry"
	"github.com/nbtaylor/treedb/internal/supervisor"
	"github.com/nbtaylor/treedb/pkg/log"
)

// Metrics is the narrow surface the worker needs from internal/metrics,
// kept as an interface here so the store's concurrency core never
// imports the observability package directly.
type Metrics interface {
	ClientConnected()
	ClientDisconnected()
	RecordOp(op string)
}

type noopMetrics struct{}

func (noopMetrics) ClientConnected()    {}
func (noopMetrics) ClientDisconnected() {}
func (noopMetrics) RecordOp(string)     {}

// Worker services one connection end to end.
type Worker struct {
	Conn        net.Conn
	Supervisor  *supervisor.Supervisor
	Gate        *pausegate.Gate
	Interpreter *protocol.Interpreter
	Metrics     Metrics
}

// Run admits the worker if the supervisor is still accepting, then
// services command lines from Conn until it errors, is cancelled, or the
// peer closes the connection. It always closes Conn before returning.
func (w *Worker) Run(ctx context.Context) {
	if w.Metrics == nil {
		w.Metrics = noopMetrics{}
	}

	client, workerCtx := registry.New(ctx)

	if !w.Supervisor.Enter(client) {
		w.Conn.Close()
		return
	}
	w.Metrics.ClientConnected()

	defer func() {
		w.Supervisor.Leave(client)
		w.Conn.Close()
		w.Metrics.ClientDisconnected()
	}()

	// Cancellation point: closing the connection is what unblocks a
	// blocking read, since net.Conn has no native context support.
	closeOnCancel := make(chan struct{})
	defer close(closeOnCancel)
	go func() {
		select {
		case <-workerCtx.Done():
			w.Conn.Close()
		case <-closeOnCancel:
		}
	}()

	reader := bufio.NewReader(w.Conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Debugf("worker %s: read error: %s", client.SessionID, err)
			}
			return
		}
		line = trimNewline(line)

		if err := w.Gate.Wait(workerCtx); err != nil {
			return
		}

		reply := w.Interpreter.Interpret(workerCtx, line)
		w.Metrics.RecordOp(opLabel(line))

		if _, err := w.Conn.Write([]byte(reply + "\n")); err != nil {
			// A broken pipe (the peer vanished) surfaces here as an
			// ordinary I/O error, never as a process signal; it ends
			// the loop exactly like any other write failure.
			log.Debugf("worker %s: write error: %s", client.SessionID, err)
			return
		}
	}
}

func trimNewline(s string) string {
	n := len(s)
	for n > 0 && (s[n-1] == '\n' || s[n-1] == '\r') {
		n--
	}
	return s[:n]
}

func opLabel(line string) string {
	if len(line) == 0 {
		return "malformed"
	}
	switch line[0] {
	case 'q':
		return "query"
	case 'a':
		return "add"
	case 'd':
		return "delete"
	case 'f':
		return "file"
	default:
		return "malformed"
	}
}
