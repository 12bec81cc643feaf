package app

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/specimap/internal/archive"
	"github.com/agentstation/specimap/internal/cmd/output"
	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
)

type processFlags struct {
	parallelism int
	deadline    time.Duration
	repository  string
	region      string
	minLevel    int
	dryRun      bool
	noEnrich    bool
	failOnError bool
	include     string
}

// NewProcessCommand creates the process command.
func (a *App) NewProcessCommand() *cobra.Command {
	flags := &processFlags{}
	cmd := &cobra.Command{
		Use:     "process <file|dir>...",
		GroupID: "core",
		Short:   "Enrich and reconcile archive files",
		Long: `Process reads specimen records from JSON Lines, JSON or YAML archive
files, or every archive file below the given directories, enriches each one from the configured sources, scores its
completeness and reconciles it into the repository.

Files are processed in parallel; records within a file in order. A record
that fails never stops the batch. When the batch deadline elapses the
command reports what finished.`,
		Example: `  specimap process records.jsonl
  specimap process --region Oceania --min-level 1 a.jsonl b.yaml
  specimap process --dry-run -o json records.jsonl
  specimap process --include 'herbarium-*.jsonl' exports/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd, args, flags)
		},
	}

	engine := a.config.Engine
	cmd.Flags().IntVarP(&flags.parallelism, "parallelism", "p", engine.Batch.Parallelism, "files processed concurrently")
	cmd.Flags().DurationVar(&flags.deadline, "deadline", engine.Batch.Deadline, "overall batch deadline")
	cmd.Flags().StringVar(&flags.repository, "repository", "", "repository file (overrides repository.path)")
	cmd.Flags().StringVar(&flags.region, "region", "", "admit only institutions in this region")
	cmd.Flags().IntVar(&flags.minLevel, "min-level", int(engine.Policy.MinLevel), "minimum MIDS level (0-3)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", engine.DryRun, "compute outcomes without writing")
	cmd.Flags().BoolVar(&flags.noEnrich, "no-enrich", false, "reconcile records as read")
	cmd.Flags().StringVar(&flags.include, "include", "", "glob for file names taken from directories")
	cmd.Flags().BoolVar(&flags.failOnError, "fail-on-error", false, "exit non-zero when any record or file failed")
	return cmd
}

func (a *App) runProcess(cmd *cobra.Command, args []string, flags *processFlags) error {
	paths, err := archive.Expand(args, flags.include)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.NewValidationError("files", args, "no archive files found")
	}

	// flags apply to this run only
	engine := *a.config.Engine
	if cmd.Flags().Changed("parallelism") {
		engine.Batch.Parallelism = flags.parallelism
	}
	if cmd.Flags().Changed("deadline") {
		engine.Batch.Deadline = flags.deadline
	}
	if flags.repository != "" {
		engine.Repository.Path = flags.repository
	}
	if flags.region != "" {
		engine.Policy.RequiredRegion = flags.region
	}
	if cmd.Flags().Changed("min-level") {
		engine.Policy.MinLevel = completeness.Level(flags.minLevel)
	}
	if cmd.Flags().Changed("dry-run") {
		engine.DryRun = flags.dryRun
	}
	if err := engine.Validate(); err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)
	p, err := a.Pipeline(ctx, &engine, BuildOptions{SkipEnrichment: flags.noEnrich})
	if err != nil {
		return err
	}

	start := time.Now()
	files := p.Dispatcher.ProcessFiles(ctx, paths, engine.Batch.Parallelism, engine.Batch.Deadline)
	report := output.NewReport(files)

	a.logger.Info().
		Int("files", len(paths)).
		Int("records", report.Summary.Total).
		Int("created", report.Summary.Created).
		Int("updated", report.Summary.Updated).
		Int("failed", report.Summary.Failed).
		Dur("elapsed", time.Since(start)).
		Bool("dry_run", engine.DryRun).
		Msg("Batch finished")

	if err := output.WriteReport(cmd.OutOrStdout(), a.format(), report); err != nil {
		return err
	}

	s := report.Summary
	if flags.failOnError && s.Failed+s.TimedOut+s.FileFails > 0 {
		return errors.New("batch finished with failures")
	}
	return nil
}
