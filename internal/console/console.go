// Package console implements the operator's stdin-driven administrative
// interface: p [path], s, g, and end-of-input triggering shutdown,
// grounded on the original server's main command loop.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nbtaylor/treedb/internal/pausegate"
	"github.com/nbtaylor/treedb/internal/store"
	"github.com/nbtaylor/treedb/pkg/log"
)

// Console reads operator commands from In and drives Gate/Store. Run
// returns once In reaches end-of-input, at which point the caller is
// responsible for running the shutdown purge and final teardown.
type Console struct {
	In    io.Reader
	Out   io.Writer
	Gate  *pausegate.Gate
	Store *store.Store

	// OnPauseChange, if set, is called with the gate's new paused state
	// after every s/g command, so an observer (e.g. internal/metrics) can
	// track it without this package depending on that one.
	OnPauseChange func(paused bool)
}

// New returns a Console reading from stdin and printing to stdout by
// default.
func New(gate *pausegate.Gate, s *store.Store) *Console {
	return &Console{In: os.Stdin, Out: os.Stdout, Gate: gate, Store: s}
}

// Run processes commands until In is exhausted.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.In)
	for scanner.Scan() {
		c.dispatch(scanner.Text())
	}
}

func (c *Console) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "p":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		c.print(path)

	case "s":
		log.Note("console: stopping all clients")
		c.Gate.Stop()
		if c.OnPauseChange != nil {
			c.OnPauseChange(true)
		}

	case "g":
		log.Note("console: releasing all clients")
		c.Gate.Release()
		if c.OnPauseChange != nil {
			c.OnPauseChange(false)
		}

	default:
		fmt.Fprintf(c.Out, "unrecognized command: %s\n", fields[0])
	}
}

func (c *Console) print(path string) {
	if path == "" {
		c.Store.Print(c.Out)
		return
	}

	f, err := os.Create(path)
	if err != nil {
		log.Errorf("console: print: %s", err)
		return
	}
	defer f.Close()
	c.Store.Print(f)
}
