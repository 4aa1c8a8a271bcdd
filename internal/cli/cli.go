// Package cli implements the colindex command tree: index management,
// row loading and JSON searches against a SQLite or PostgreSQL backed
// index.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/colindex/colindex/colindex"
	"github.com/colindex/colindex/colindex/logging"
	"github.com/colindex/colindex/internal/cliopt"
)

// app carries the resolved global options and the streams commands use.
type app struct {
	opts   cliopt.GlobalOptions
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	root.SetArgs(argv)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// NewRootCommand returns the root command with every subcommand wired in.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "colindex",
		Short:         "Secondary index over a partitioned column store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts, err := cliopt.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a.opts = opts
			return nil
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cliopt.BindGlobalFlags(cmd.PersistentFlags(), cliopt.DefaultGlobalOptions())

	cmd.AddCommand(
		a.newIndexCmd(),
		a.newPutCmd(),
		a.newGetCmd(),
		a.newDeleteCmd(),
		a.newSearchCmd(),
		a.newValidateCmd(),
		a.newDiscoverCmd(),
		a.newStatsCmd(),
		a.newCursorCmd(),
	)
	return cmd
}

func (a *app) printer() *printer {
	return newPrinter(a.opts.Format, a.stdout)
}

func (a *app) logger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(a.opts.LogLevel)
	if err != nil {
		return nil, err
	}
	if a.opts.LogFormat == "json" {
		return logging.NewJSONLogger(a.stderr, level), nil
	}
	return logging.NewTextLogger(a.stderr, level), nil
}

func (a *app) indexOptions() (colindex.IndexOptions, error) {
	logger, err := a.logger()
	if err != nil {
		return colindex.IndexOptions{}, err
	}
	opts := colindex.DefaultIndexOptions()
	opts.CursorTTL = a.opts.CursorTTL
	opts.Parallelism = a.opts.Parallelism
	opts.Logger = logger
	return opts, nil
}

// openIndex opens the index named by --index and loads its partitions.
func (a *app) openIndex(ctx context.Context) (*colindex.Index, error) {
	adapter, err := adapterFor(a.opts, false)
	if err != nil {
		return nil, err
	}
	opts, err := a.indexOptions()
	if err != nil {
		return nil, err
	}
	return colindex.Open(ctx, adapter, opts)
}

// withIndex opens the index, runs fn and closes the index again.
func (a *app) withIndex(ctx context.Context, fn func(ix *colindex.Index) error) error {
	ix, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	defer ix.Close()
	return fn(ix)
}
