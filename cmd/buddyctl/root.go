package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose         bool
	quiet           bool
	jsonOut         bool
	configPath      string
	arenaSize       string
	logLevel        string
	logFormat       string
	inputEncoding   string
	metricsAddr     string
	checkInvariants bool
)

var rootCmd = &cobra.Command{
	Use:   "buddyctl",
	Short: "Run block table command scripts against a buddy-allocated arena",
	Long: `buddyctl executes INSERT, DELETE, READ, UPDATE and DUMP commands against
an in-memory block table backed by a power-of-two buddy allocator. It can
expose allocator metrics to Prometheus while the commands run.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except command results and errors")
	pf.BoolVar(&jsonOut, "json", false, "Print the run summary in JSON format")
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&arenaSize, "arena-size", "", "Arena size, a power of two (e.g. 65536, 64KiB)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&inputEncoding, "encoding", "", "Input encoding: utf-8, windows-1252, iso-8859-1")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	pf.BoolVar(&checkInvariants, "check-invariants", false, "Validate the block table after every mutation")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v\n", err)
		stop()
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// checkMinArgs validates that at least the minimum number of arguments were provided
func checkMinArgs(args []string, min int, usage string) error {
	if len(args) < min {
		return fmt.Errorf(
			"expected at least %d argument(s), got %d\nUsage: %s",
			min,
			len(args),
			usage,
		)
	}
	return nil
}
