package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exfs2/exfs2/internal/engine"
)

func resetFlags() {
	flagAdd = ""
	flagFrom = ""
	flagExtract = ""
	flagRemove = ""
	flagList = false
	flagDebug = ""
}

func TestSelectedMode(t *testing.T) {
	cases := []struct {
		name string
		set  func()
		want []string
	}{
		{"none", func() {}, nil},
		{"add only", func() { flagAdd = "/x" }, []string{"add"}},
		{"list only", func() { flagList = true }, []string{"list"}},
		{"add and list conflict", func() { flagAdd = "/x"; flagList = true }, []string{"add", "list"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resetFlags()
			c.set()
			got := selectedMode()
			require.Equal(t, c.want, got)
		})
	}
	resetFlags()
}

func TestArgParsingViaCobraFlags(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-a", "/hello.txt", "-f", "host.txt"}))
	require.Equal(t, "/hello.txt", flagAdd)
	require.Equal(t, "host.txt", flagFrom)
}

func TestExitCodeFor(t *testing.T) {
	require.Equal(t, 2, exitCodeFor(fmt.Errorf("wrapped: %w", errUsage)))
	require.Equal(t, 2, exitCodeFor(errUsage))
	require.Equal(t, 1, exitCodeFor(engine.ErrNoFreeBlock))
	require.Equal(t, 1, exitCodeFor(engine.ErrFileTooLarge))
	require.Equal(t, 1, exitCodeFor(errors.New("plain I/O failure")))
}

func TestIsLookupError(t *testing.T) {
	require.True(t, isLookupError(engine.ErrNotFound))
	require.True(t, isLookupError(engine.ErrAlreadyExists))
	require.False(t, isLookupError(engine.ErrNoFreeBlock))
	require.False(t, isLookupError(errUsage))
}
