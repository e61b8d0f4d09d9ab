// pretor-psf creates and inspects student submission archives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/pretor/internal/config"
	"github.com/okian/pretor/internal/course"
	"github.com/okian/pretor/internal/ledger"
	"github.com/okian/pretor/internal/psf"
	"github.com/okian/pretor/pkg/logger"
	"github.com/okian/pretor/pkg/version"
)

var (
	cfg *config.Config
	log logger.Logger

	debug bool

	createSource      string
	createDestination string
	createName        string
	createCourse      string
	createSection     string
	createSemester    string
	createAssignment  string
	createGroup       string
	createForce       bool

	scorecardCoursePath string
	extractDestination  string
)

func main() {
	root := &cobra.Command{
		Use:               "pretor-psf",
		Short:             "Create and inspect student submission archives",
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		createCommand(),
		metadataCommand(),
		scorecardCommand(),
		modifyCommand(),
		extractCommand(),
		revisionsCommand(),
		forensicCommand(),
	)

	if err := root.Execute(); err != nil {
		if log != nil {
			log.Error(context.Background(), "command failed", logger.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
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
	log = logger.Named("pretor-psf")
	return nil
}

func createCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Pack a submission directory into a new archive",
		RunE:  runCreate,
	}
	cmd.Flags().StringVar(&createSource, "source", ".", "submission directory to pack")
	cmd.Flags().StringVar(&createDestination, "destination", ".", "directory for the new archive")
	cmd.Flags().StringVar(&createName, "name", "", "archive file name (derived from metadata when empty)")
	cmd.Flags().StringVar(&createCourse, "course", "", "course name")
	cmd.Flags().StringVar(&createSection, "section", "", "course section")
	cmd.Flags().StringVar(&createSemester, "semester", "", "semester identifier")
	cmd.Flags().StringVar(&createAssignment, "assignment", "", "assignment name")
	cmd.Flags().StringVar(&createGroup, "group", "", "student or group identifier")
	cmd.Flags().BoolVar(&createForce, "force", false, "overwrite an existing archive")
	return cmd
}

func runCreate(cmd *cobra.Command, _ []string) error {
	meta := psf.Metadata{}
	var opts []psf.Option

	// pretor.toml supplies defaults; explicit flags win.
	sub, err := psf.LoadSubmissionConfig(createSource)
	switch {
	case err == nil:
		meta = sub.Metadata.Clone()
		if len(sub.Exclude) > 0 {
			opts = append(opts, psf.WithExclude(sub.Exclude...))
		}
	case errors.Is(err, psf.ErrNotFound):
	default:
		return err
	}

	set := func(field, value string) {
		if value != "" {
			meta[field] = value
		}
	}
	set(psf.FieldCourse, createCourse)
	set(psf.FieldSection, createSection)
	set(psf.FieldSemester, createSemester)
	set(psf.FieldAssignment, createAssignment)
	set(psf.FieldGroup, createGroup)

	if sub != nil && !sub.AllowsAssignment(meta[psf.FieldAssignment]) {
		return fmt.Errorf("assignment %q is not one of the allowed names %v",
			meta[psf.FieldAssignment], sub.ValidAssignments)
	}

	name := createName
	if name == "" {
		if name, err = psf.DefaultName(meta); err != nil {
			return err
		}
	} else if !strings.HasSuffix(name, ".psf") {
		name += ".psf"
	}

	if createForce {
		opts = append(opts, psf.WithOverwrite())
	}

	a, err := psf.Create(filepath.Join(createDestination, name), meta, createSource, opts...)
	if err != nil {
		return err
	}
	log.Info(cmd.Context(), "archive created",
		logger.String("path", a.Path()),
		logger.String("id", a.ID()))
	fmt.Println(a.Path())
	return nil
}

func metadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <archive>",
		Short: "Print the archive's metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			meta, err := psf.PeekMetadata(args[0])
			if err != nil {
				return err
			}
			fields := make([]string, 0, len(meta))
			for k := range meta {
				fields = append(fields, k)
			}
			sort.Strings(fields)

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tVALUE")
			for _, k := range fields {
				fmt.Fprintf(tw, "%s\t%s\n", k, meta[k])
			}
			return tw.Flush()
		},
	}
}

func scorecardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scorecard <archive>",
		Short: "Print the archive's effective scorecard",
		Args:  cobra.ExactArgs(1),
		RunE:  runScorecard,
	}
	cmd.Flags().StringVar(&scorecardCoursePath, "coursepath", "", "colon-delimited course definition search path")
	return cmd
}

func runScorecard(cmd *cobra.Command, args []string) error {
	a, err := psf.Open(args[0])
	if err != nil {
		return err
	}

	searchPath := scorecardCoursePath
	if searchPath == "" {
		searchPath = cfg.CoursePath
	}
	courses, loadErrs := course.LoadPath(searchPath)
	for _, e := range loadErrs {
		log.Warn(cmd.Context(), "skipping course definition", logger.Error(e))
	}

	name, _ := a.Field(psf.FieldCourse)
	c, ok := courses[name]
	if !ok {
		return fmt.Errorf("%w: no definition for course %q under %q",
			course.ErrNotFound, name, searchPath)
	}

	out, err := ledger.FormatScorecard(a.Scorecard(), c)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func modifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modify <archive> <field> <value>",
		Short: "Set or insert one metadata field",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := psf.Open(args[0])
			if err != nil {
				return err
			}
			a.Modify(args[1], args[2])
			if err := a.Save(); err != nil {
				return err
			}
			log.Info(cmd.Context(), "metadata updated",
				logger.String("path", a.Path()),
				logger.String("field", args[1]))
			return nil
		},
	}
}

func extractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <archive>",
		Short: "Unpack the archive's payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := psf.Open(args[0])
			if err != nil {
				return err
			}
			return a.Extract(extractDestination)
		},
	}
	cmd.Flags().StringVar(&extractDestination, "destination", ".", "directory to extract into")
	return cmd
}

func revisionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <archive>",
		Short: "Print the archive's revision history",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := psf.Open(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTIMESTAMP\tCONTRIBUTIONS")
			for _, r := range a.Ledger().Revisions() {
				fmt.Fprintf(tw, "%d\t%s\t%s\n",
					r.Seq, r.Timestamp.Format("2006-01-02 15:04:05"), formatContribs(r.Contributions))
			}
			return tw.Flush()
		},
	}
}

func forensicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forensic <archive>",
		Short: "Print the provenance record captured at creation",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := psf.Open(args[0])
			if err != nil {
				return err
			}
			f := a.Forensic()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "hostname\t%s\n", f.Hostname)
			fmt.Fprintf(tw, "user\t%s\n", f.User)
			fmt.Fprintf(tw, "timestamp\t%s\n", f.Timestamp)
			fmt.Fprintf(tw, "source\t%s\n", f.Source)
			fmt.Fprintf(tw, "version\t%s\n", f.Version)
			return tw.Flush()
		},
	}
}

func formatContribs(contribs map[string]float64) string {
	if len(contribs) == 0 {
		return "(metadata only)"
	}
	keys := make([]string, 0, len(contribs))
	for k := range contribs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.4f", k, contribs[k]))
	}
	return strings.Join(parts, " ")
}
