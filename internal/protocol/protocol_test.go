package protocol

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtaylor/treedb/internal/store"
)

func newInterpreter() *Interpreter {
	return &Interpreter{Store: store.New()}
}

// TestBasicRoundTrip reproduces scenario S1 from the specification.
func TestBasicRoundTrip(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	assert.Equal(t, "added", in.Interpret(ctx, "a cat meow"))
	assert.Equal(t, "added", in.Interpret(ctx, "a dog bark"))
	assert.Equal(t, "meow", in.Interpret(ctx, "q cat"))
	assert.Equal(t, "not found", in.Interpret(ctx, "q bird"))
	assert.Equal(t, "removed", in.Interpret(ctx, "d cat"))
	assert.Equal(t, "not found", in.Interpret(ctx, "q cat"))
}

func TestDuplicateAdd(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	assert.Equal(t, "added", in.Interpret(ctx, "a k v"))
	assert.Equal(t, "already in database", in.Interpret(ctx, "a k v2"))
}

func TestRemoveAbsent(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()
	assert.Equal(t, "not in database", in.Interpret(ctx, "d nope"))
}

func TestMalformedCommands(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	cases := []string{
		"",
		"z",
		"zjunk",
		"a onlyname",
		"q",
		"d",
	}
	for _, c := range cases {
		assert.Equal(t, "ill-formed command", in.Interpret(ctx, c), "command %q", c)
	}
}

func TestOversizedTokenIsIllFormed(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	longName := strings.Repeat("x", MaxTokenLen+1)
	assert.Equal(t, "ill-formed command", in.Interpret(ctx, "q "+longName))
	assert.Equal(t, "ill-formed command", in.Interpret(ctx, "a "+longName+" v"))
}

func TestFileCommandProcessesNestedCommands(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "commands.txt")
	contents := "a cat meow\na dog bark\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	assert.Equal(t, "file processed", in.Interpret(ctx, "f "+path))
	assert.Equal(t, "meow", in.Interpret(ctx, "q cat"))
	assert.Equal(t, "bark", in.Interpret(ctx, "q dog"))
}

func TestFileCommandBadPath(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()
	assert.Equal(t, "bad file name", in.Interpret(ctx, "f /no/such/path/exists"))
}

// TestTwoChildDelete reproduces scenario S2.
func TestTwoChildDelete(t *testing.T) {
	in := newInterpreter()
	ctx := context.Background()

	for _, cmd := range []string{
		"a m m-val", "a c c-val", "a t t-val",
		"a a a-val", "a f f-val", "a p p-val", "a z z-val",
	} {
		require.Equal(t, "added", in.Interpret(ctx, cmd))
	}

	assert.Equal(t, "removed", in.Interpret(ctx, "d m"))
	assert.Equal(t, "not found", in.Interpret(ctx, "q m"))
	assert.Equal(t, "p-val", in.Interpret(ctx, "q p"))
}

func TestWaiterCancellationDuringFile(t *testing.T) {
	callCount := 0
	in := &Interpreter{
		Store: store.New(),
		Waiter: func(ctx context.Context) error {
			callCount++
			if callCount == 2 {
				return context.Canceled
			}
			return nil
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "commands.txt")
	require.NoError(t, os.WriteFile(path, []byte("a one 1\na two 2\na three 3\n"), 0o644))

	in.Interpret(context.Background(), "f "+path)

	_, found := in.Store.Query("one")
	assert.True(t, found, "commands before the cancelled wait should still apply")
	_, found = in.Store.Query("three")
	assert.False(t, found, "a cancelled wait must stop processing the rest of the file")
}
