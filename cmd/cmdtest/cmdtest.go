// Package cmdtest runs commands in tests.
package cmdtest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/cobra"
)

// Run executes the command with the given arguments and returns what it
// wrote to its output. Diagnostics written to the error stream are
// discarded.
func Run(t *testing.T, cmd *cobra.Command, args []string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%s %v: %v", cmd.Name(), args, err)
	}
	return out.Bytes()
}
