// pretor-import reconciles an external grade export against a set of
// submission archives. The batch commits all-or-nothing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/pretor/internal/config"
	"github.com/okian/pretor/internal/course"
	"github.com/okian/pretor/internal/reconcile"
	"github.com/okian/pretor/pkg/logger"
	"github.com/okian/pretor/pkg/version"
)

var (
	cfg *config.Config
	log logger.Logger

	debug       bool
	coursePath  string
	inputPath   string
	tsv         bool
	tolerant    bool
	concurrency int
)

func main() {
	root := &cobra.Command{
		Use:           "pretor-import <archive|directory>...",
		Short:         "Import grade rows into submission archives",
		Version:       version.Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			c, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			cfg = c

			level := cfg.LogLevel
			if debug {
				level = "debug"
			}
			if err := logger.SetLevelString(level); err != nil {
				_ = logger.SetLevelString("info")
			}
			log = logger.Named("pretor-import")
			return nil
		},
		RunE: run,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.Flags().StringVar(&coursePath, "coursepath", "", "colon-delimited course definition search path")
	root.Flags().StringVar(&inputPath, "input", "-", "grade export file, - for stdin")
	root.Flags().BoolVar(&tsv, "tsv", false, "read tab-separated input")
	root.Flags().BoolVar(&tolerant, "tolerant", false, "accept components the course definition does not define")
	root.Flags().IntVar(&concurrency, "concurrency", 0, "commit worker count (defaults to configuration)")

	if err := root.Execute(); err != nil {
		if log != nil {
			log.Error(context.Background(), "import failed", logger.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var readOpts []reconcile.ReadOption
	if tsv {
		readOpts = append(readOpts, reconcile.WithTab())
	}
	rows, err := reconcile.ReadRows(in, readOpts...)
	if err != nil {
		return err
	}
	log.Debug(cmd.Context(), "grade rows read", logger.Int("rows", len(rows)))

	searchPath := coursePath
	if searchPath == "" {
		searchPath = cfg.CoursePath
	}
	courses, loadErrs := course.LoadPath(searchPath)
	for _, e := range loadErrs {
		log.Warn(cmd.Context(), "skipping course definition", logger.Error(e))
	}

	workers := concurrency
	if workers < 1 {
		workers = cfg.CommitConcurrency
	}
	opts := []reconcile.Option{
		reconcile.WithConcurrency(workers),
		reconcile.WithLogger(log),
	}
	if tolerant {
		opts = append(opts, reconcile.WithTolerant())
	}

	return reconcile.New(courses, opts...).Run(cmd.Context(), rows, args)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
