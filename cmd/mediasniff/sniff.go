package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mynest/mediasniff/internal/bridge"
	"github.com/mynest/mediasniff/internal/config"
	"github.com/mynest/mediasniff/internal/database"
	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
	"github.com/mynest/mediasniff/internal/pipeline"
	"github.com/mynest/mediasniff/internal/report"
)

// NewSniffCmd creates the sniff command.
func NewSniffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sniff [page-url]...",
		Short: "Detect the media resources of web pages",
		Long: `Sniff loads a page, detects its video, audio and image resources and
lists them by size, largest first.

Sizes come from the page's resource timing data when available (--har),
otherwise from a HEAD request per resource.

Examples:
  # Sniff a page
  mediasniff sniff https://example.com/gallery

  # Sniff a saved page, using a HAR export for sizes
  mediasniff sniff --html page.html --har page.har https://example.com/gallery

  # Capture video thumbnails and save the result
  mediasniff sniff --thumbnails --save https://example.com/watch

  # Submit every video found to MyNest
  mediasniff sniff --submit video https://example.com/watch

  # Sniff through Tor
  mediasniff sniff --tor-proxy 127.0.0.1:9050 http://exampleonion.onion/`,
		Args: cobra.ArbitraryArgs,
		RunE: runSniffCmd,
	}

	// Input flags
	cmd.Flags().String("html", "",
		"Sniff a saved HTML snapshot instead of fetching the page (one target only)")
	cmd.Flags().String("har", "",
		"Use resource timing from a HAR export (one target only)")

	addConnectionFlags(cmd)
	addPipelineFlags(cmd, false)

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent sniffs")

	// Result flags
	cmd.Flags().Bool("save", false,
		"Save results to the local database")
	cmd.Flags().String("submit", "",
		"Submit resources of this type to MyNest: all, video, image or audio")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runSniffCmd executes the sniff command.
func runSniffCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSniffConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateSniff(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSniff(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildSniffConfig creates a Config from cobra command flags.
func buildSniffConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.HTMLFile, err = flags.GetString("html"); err != nil {
		return nil, err
	}
	if cfg.HARFile, err = flags.GetString("har"); err != nil {
		return nil, err
	}
	if err := readConnectionFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := readPipelineFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.Submit, err = flags.GetString("submit"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// runSniff sniffs every target and writes the reports in target order.
func runSniff(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, status io.Writer) error {
	logger.Info("starting sniff",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	env, err := newEnvironment(ctx, cfg, logger, status)
	if err != nil {
		return err
	}
	defer env.Close()

	factory, err := newPipelineFactory(env)
	if err != nil {
		return err
	}

	var db *database.SniffDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	var submitter bridge.Submitter
	if cfg.Submit != "" {
		client, err := newMyNestClient(cfg, logger)
		if err != nil {
			return err
		}
		submitter = client
	}

	writer, closeOutput, err := openReportWriter(cfg, out)
	if err != nil {
		return err
	}
	defer closeOutput()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	reports, batchErr := bp.ProcessBatch(ctx, cfg.Targets)
	logger.Info("sniff completed", "elapsed", time.Since(startTime).Round(time.Millisecond))

	var errs []error
	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, err := writer.Write(r); err != nil {
			errs = append(errs, fmt.Errorf("failed to write report: %w", err))
		}
		if err := saveSniffReport(ctx, db, r, logger); err != nil {
			logger.Error("failed to save sniff report", "page", r.PageURL, "error", err)
		}
		if submitter != nil && !r.Failed() {
			submitResources(ctx, submitter, r, cfg.Submit, status, logger)
		}
	}

	if len(cfg.Targets) > 1 {
		if _, err := writer.WriteSummary(report.NewSummary(reports)); err != nil {
			errs = append(errs, fmt.Errorf("failed to write summary: %w", err))
		}
	}

	return errors.Join(append(errs, batchErr)...)
}

// newPipelineFactory reads the snapshot inputs once and returns a factory
// creating one pipeline per target.
func newPipelineFactory(env *environment) (func(target string) *pipeline.Pipeline, error) {
	cfg := env.cfg

	sn, err := env.sniffer()
	if err != nil {
		return nil, err
	}

	var resourceLog *page.ResourceLog
	if cfg.HARFile != "" {
		resourceLog, err = loadHARFile(cfg.HARFile)
		if err != nil {
			return nil, err
		}
	}

	snapshot := cfg.HTMLFile != ""
	var html string
	if snapshot {
		data, err := os.ReadFile(cfg.HTMLFile) //nolint:gosec // user-provided snapshot path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read HTML snapshot: %w", err)
		}
		html = string(data)
	}

	fetcher := env.fetcher()
	resolver := env.resolver()
	prober := env.prober()
	capturer := env.capturer()

	return func(_ string) *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(env.logger))
		if snapshot {
			p.AddStep(pipeline.NewSnapshotStep(html, resourceLog))
		} else {
			p.AddStep(pipeline.NewFetchStep(fetcher, pipeline.WithResourceLog(resourceLog)))
		}
		p.AddStep(pipeline.NewDetectStep(sn))
		if prober != nil {
			p.AddStep(pipeline.NewDimensionStep(prober))
		}
		p.AddStep(pipeline.NewSizeStep(resolver))
		if capturer != nil {
			p.AddStep(pipeline.NewThumbnailStep(capturer, env.logger))
		}
		return p
	}, nil
}

// loadHARFile reads the resource log of a HAR export.
func loadHARFile(path string) (*page.ResourceLog, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided HAR path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer f.Close()

	resourceLog, err := page.LoadHAR(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load HAR file %s: %w", path, err)
	}
	return resourceLog, nil
}

// openReportWriter returns the writer for the requested format and a
// function that closes the output file, if any.
func openReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func(), error) {
	output := stdout
	closeOutput := func() {}

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain signed media URLs, so only the owner may read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeOutput = func() { _ = f.Close() } //nolint:errcheck // written data is already flushed
	}

	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint()), closeOutput, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), closeOutput, nil
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose)), closeOutput, nil
	}
}

// saveSniffReport saves the report to the database.
// If db is nil, this function is a no-op.
func saveSniffReport(ctx context.Context, db *database.SniffDB, r *model.SniffReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if err := db.SaveSniff(ctx, r); err != nil {
		return fmt.Errorf("failed to save sniff report: %w", err)
	}
	logger.Info("sniff report saved to database", "page", r.PageURL, "id", r.ID)
	return nil
}

// submitResources sends the resources of the given type to MyNest and
// returns the number accepted. Rejections are reported and skipped.
func submitResources(ctx context.Context, s bridge.Submitter, r *model.SniffReport, kind string, status io.Writer, logger *slog.Logger) int {
	selected := lo.Filter(r.Resources, func(res *model.MediaResource, _ int) bool {
		return kind == "all" || res.Type == model.MediaType(kind)
	})

	accepted := 0
	for _, res := range selected {
		task, err := s.Submit(ctx, res.URL)
		if err != nil {
			logger.Warn("download rejected", "url", res.URL, "error", err)
			fmt.Fprintf(status, "Submit failed for %s: %v\n", res.URL, err)
			continue
		}
		accepted++
		if task != nil {
			fmt.Fprintf(status, "Submitted %s (task %d)\n", res.URL, task.ID)
		} else {
			fmt.Fprintf(status, "Submitted %s\n", res.URL)
		}
	}
	return accepted
}
