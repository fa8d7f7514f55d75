// Package protocol implements the line-oriented client command language
// (q/a/d/f) and its dispatch against a store.Store, grounded on the
// original server's interpret_command.
package protocol

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/nbtaylor/treedb/internal/store"
)

// MaxResponseLen bounds a single reply, matching the original's 512-byte
// response buffer.
const MaxResponseLen = 512

// MaxTokenLen bounds a single NAME or VALUE token.
const MaxTokenLen = 255

// Interpreter dispatches command lines against a store. Waiter is called
// before each line read from an 'f' file is dispatched, to honor the
// Pause Gate; it returns an error if the wait was cancelled. Interpret
// does not call Waiter for the line it is given: gating that line is the
// caller's job.
type Interpreter struct {
	Store  *store.Store
	Waiter func(ctx context.Context) error
}

// Interpret parses and executes a single command line (without its
// trailing newline) and returns the reply to send back, truncated to
// MaxResponseLen. An internal nesting depth, capped at
// maxFileRecursionDepth, guards 'f' against unbounded self-inclusion.
func (in *Interpreter) Interpret(ctx context.Context, line string) string {
	return in.interpret(ctx, line, 0)
}

func (in *Interpreter) interpret(ctx context.Context, line string, depth int) string {
	if len(line) < 1 {
		return "ill-formed command"
	}

	selector := line[0]
	rest := strings.TrimSpace(line[1:])

	switch selector {
	case 'q':
		name, ok := firstToken(rest)
		if !ok {
			return "ill-formed command"
		}
		return in.query(name)

	case 'a':
		name, value, ok := twoTokens(rest)
		if !ok {
			return "ill-formed command"
		}
		return in.add(name, value)

	case 'd':
		name, ok := firstToken(rest)
		if !ok {
			return "ill-formed command"
		}
		return in.remove(name)

	case 'f':
		path, ok := firstToken(rest)
		if !ok {
			return "ill-formed command"
		}
		return in.file(ctx, path, depth)

	default:
		return "ill-formed command"
	}
}

func (in *Interpreter) query(name string) string {
	if len(name) > MaxTokenLen {
		return "ill-formed command"
	}
	value, found := in.Store.Query(name)
	if !found {
		return "not found"
	}
	return truncate(value)
}

func (in *Interpreter) add(name, value string) string {
	if len(name) > MaxTokenLen || len(value) > MaxTokenLen {
		return "ill-formed command"
	}
	added, err := in.Store.Add(name, value)
	if err != nil {
		return "ill-formed command"
	}
	if added {
		return "added"
	}
	return "already in database"
}

func (in *Interpreter) remove(name string) string {
	if len(name) > MaxTokenLen {
		return "ill-formed command"
	}
	if in.Store.Remove(name) {
		return "removed"
	}
	return "not in database"
}

// maxFileRecursionDepth bounds nested 'f' files; the original has no such
// bound (fopen would simply fail on a cycle via too-many-open-files), but
// an explicit cap keeps a misconfigured file from recursing forever.
const maxFileRecursionDepth = 16

func (in *Interpreter) file(ctx context.Context, path string, depth int) string {
	if depth >= maxFileRecursionDepth {
		return "bad file name"
	}

	f, err := os.Open(path)
	if err != nil {
		return "bad file name"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "file processed"
		}
		if in.Waiter != nil {
			if err := in.Waiter(ctx); err != nil {
				return "file processed"
			}
		}
		in.interpret(ctx, scanner.Text(), depth+1)
	}
	return "file processed"
}

func firstToken(s string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) < 1 {
		return "", false
	}
	return fields[0], true
}

func twoTokens(s string) (string, string, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func truncate(s string) string {
	if len(s) <= MaxResponseLen {
		return s
	}
	return s[:MaxResponseLen]
}
