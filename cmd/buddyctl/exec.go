package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newExecCmd())
}

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command>...",
		Short: "Execute commands given as arguments",
		Long: `The exec command executes each argument as one block table command,
in order, against a fresh arena.

Example:
  buddyctl exec "INSERT 5 Hello" "UPDATE 0 Goodbye" "READ 0" DUMP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&runStrict, "strict", false, "Exit non-zero if any command failed or was rejected")
	return cmd
}

func runExec(ctx context.Context, args []string) error {
	if err := checkMinArgs(args, 1, "buddyctl exec <command>..."); err != nil {
		return err
	}
	// Arguments are already UTF-8.
	return runCommands(ctx, strings.NewReader(strings.Join(args, "\n")+"\n"), "utf-8")
}
