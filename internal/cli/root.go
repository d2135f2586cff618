// Package cli implements the simpleq command: run shell jobs through a
// bounded-concurrency queue.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/Swind/go-simpleq/internal/config"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// ErrJobsFailed is returned when at least one job failed.
var ErrJobsFailed = errors.New("simpleq: one or more jobs failed")

// NewRootCommand builds the simpleq command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "simpleq",
		Short:         "Run shell jobs with bounded concurrency",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newVersionCommand())
	return root
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run jobs from a YAML file or from stdin, one command per line",
		Long: `Run every job through a queue that starts at most --concurrency jobs at once.

Jobs come from --jobs FILE (YAML) or, when --jobs is empty or -, from stdin
with one shell command per line. When the config file lists schedules, run
stays in the foreground and pushes the named jobs on every firing until it
receives SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return runCommand(cmd, config.NewManager(path, cmd.Flags()))
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the simpleq version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "simpleq", Version)
		},
	}
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, ErrJobsFailed) {
			fmt.Fprintln(os.Stderr, "simpleq:", err)
		}
		return 1
	}
	return 0
}
