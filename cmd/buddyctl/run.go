package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var runStrict bool

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file|->",
		Short: "Execute a command file",
		Long: `The run command executes a file of block table commands, one per line,
and prints one result line per command. Use "-" to read from stdin.

Commands:
  INSERT <size> <data>   allocate a block and store data
  DELETE <id>            free a block
  READ <id>              print a block's region and data
  UPDATE <id> <data>     replace a block's data, moving it if needed
  DUMP                   list all free and allocated blocks

Example:
  buddyctl run commands.txt
  buddyctl run --arena-size 1MiB --check-invariants commands.txt
  cat commands.txt | buddyctl run - --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&runStrict, "strict", false, "Exit non-zero if any command failed or was rejected")
	return cmd
}

func runRun(ctx context.Context, args []string) error {
	path := args[0]

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open command file: %w", err)
		}
		defer f.Close()
		r = f
	}
	printVerbose("Running commands from %s\n", path)

	return runCommands(ctx, r, "")
}

// runCommands executes r in a fresh session and prints the summary.
// A non-empty encoding overrides the configured input encoding.
func runCommands(ctx context.Context, r io.Reader, encoding string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if encoding != "" {
		cfg.Input.Encoding = encoding
	}
	s, err := newSession(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := s.run(ctx, r)
	if err != nil {
		return fmt.Errorf("run interrupted after %d command(s): %w", sum.Total(), err)
	}
	if err := s.report(sum); err != nil {
		return err
	}
	if runStrict && sum.Failed+sum.Rejected > 0 {
		return fmt.Errorf("%d command(s) failed, %d rejected", sum.Failed, sum.Rejected)
	}
	return nil
}
