package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/msgload/pkg/msgload"
)

// RequireInputsAndDestination validates that exactly the messages file,
// the categories file and the destination are given.
func RequireInputsAndDestination(cmd *cobra.Command, args []string) error {
	if len(args) == 3 {
		return nil
	}
	return fmt.Errorf(`expected 3 arguments, received %d: %w

Provide the messages and categories CSV files as the first and second
argument and the destination database as the third argument.

Usage: %s

Example:
  %s`, len(args), msgload.ErrUsage, cmd.UseLine(), exampleInvocation)
}
