// pretor-query evaluates one SQL query over a set of submission archives.
// The archives are projected into an in-memory table named psf; nothing is
// written to disk.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/pretor/internal/config"
	"github.com/okian/pretor/internal/query"
	"github.com/okian/pretor/pkg/logger"
	"github.com/okian/pretor/pkg/version"
)

var (
	cfg *config.Config
	log logger.Logger

	debug    bool
	queryStr string
	glob     string
	pretty   bool
	asCSV    bool
	asTSV    bool
)

func main() {
	root := &cobra.Command{
		Use:           "pretor-query [paths...]",
		Short:         "Run SQL over submission archives",
		Version:       version.Version,
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
			log = logger.Named("pretor-query")
			return nil
		},
		RunE: run,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.Flags().StringVar(&queryStr, "query", "", "SQL to evaluate against the psf table")
	root.Flags().StringVar(&glob, "glob", "*.psf", "file pattern when scanning directories")
	root.Flags().BoolVar(&pretty, "pretty", false, "render an aligned table")
	root.Flags().BoolVar(&asCSV, "csv", false, "render comma-separated output")
	root.Flags().BoolVar(&asTSV, "tsv", false, "render tab-separated output")
	_ = root.MarkFlagRequired("query")

	if err := root.Execute(); err != nil {
		if log != nil {
			log.Error(context.Background(), "query failed", logger.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	roots := args
	if len(roots) == 0 {
		roots = []string{cfg.QueryRoot}
	}
	files, err := collect(roots, glob)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no archives found under %s", strings.Join(roots, ", "))
	}

	format, err := resolveFormat()
	if err != nil {
		return err
	}

	db, err := query.Build(cmd.Context(), files)
	if err != nil {
		return err
	}
	defer query.Close(db)

	res, err := query.Run(cmd.Context(), db, queryStr)
	if err != nil {
		return err
	}
	log.Debug(cmd.Context(), "query evaluated",
		logger.Int("archives", len(files)),
		logger.Int("rows", len(res.Rows)))
	return query.Render(os.Stdout, res, format)
}

func resolveFormat() (query.Format, error) {
	switch {
	case pretty:
		return query.FormatPlain, nil
	case asCSV:
		return query.FormatCSV, nil
	case asTSV:
		return query.FormatTSV, nil
	}
	return query.ParseFormat(cfg.OutputFormat)
}

// collect expands files and directories into the archive list; directories
// are walked recursively, matching base names against the glob.
func collect(roots []string, pattern string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
