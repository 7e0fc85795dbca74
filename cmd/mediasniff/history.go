package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mynest/mediasniff/internal/config"
	"github.com/mynest/mediasniff/internal/database"
	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [page-url]",
		Short: "List stored sniff results",
		Long: `History lists the sniffs saved with "sniff --save" or "serve --save",
newest first. With a page URL only that page's sniffs are listed.

Examples:
  # List recent sniffs
  mediasniff history

  # List the sniffs of one page
  mediasniff history https://example.com/gallery

  # Show a stored result
  mediasniff history --show 0b6f3c1e-...

  # Delete results older than 30 days
  mediasniff history --prune 720h`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of sniffs to list (0 for all)")
	cmd.Flags().String("show", "",
		"Print the stored report with this sniff ID")
	cmd.Flags().Duration("prune", 0,
		"Delete sniffs older than this duration")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	show, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	prune, err := cmd.Flags().GetDuration("prune")
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case show != "":
		return showSniff(ctx, db, show, out)
	case prune > 0:
		return pruneHistory(ctx, db, time.Now().Add(-prune), out)
	default:
		var pageURL string
		if len(args) > 0 {
			pageURL = args[0]
		}
		return listHistory(ctx, db, pageURL, limit, out)
	}
}

// listHistory prints one line per stored sniff.
func listHistory(ctx context.Context, db *database.SniffDB, pageURL string, limit int, out io.Writer) error {
	sniffs, err := db.ListSniffs(ctx, pageURL, limit)
	if err != nil {
		return fmt.Errorf("failed to list sniffs: %w", err)
	}

	if len(sniffs) == 0 {
		if pageURL != "" {
			fmt.Fprintf(out, "No sniff history found for %s\n", pageURL)
		} else {
			fmt.Fprintln(out, "No sniff history found")
		}
		fmt.Fprintln(out, "\nUse 'mediasniff sniff --save' to store results.")
		return nil
	}

	fmt.Fprintf(out, "Sniff history (%d sniffs):\n\n", len(sniffs))
	fmt.Fprintf(out, "  %-36s  %-14s  %-24s  %-9s  %s\n", "ID", "When", "Resources", "Size", "Page")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, s := range sniffs {
		fmt.Fprintf(out, "  %-36s  %-14s  %-24s  %-9s  %s\n",
			s.ID,
			humanize.Time(s.StartedAt),
			formatCounts(s),
			humanize.Bytes(uint64(max(s.TotalSize, 0))),
			s.PageURL,
		)
	}

	fmt.Fprintln(out, "\nUse 'mediasniff history --show <id>' to print a stored result.")
	return nil
}

// formatCounts renders the per-type counts of a summary, e.g. "2 video 5 image".
func formatCounts(s database.SniffSummary) string {
	if s.Error != "" {
		return "failed"
	}
	var parts []string
	for _, t := range model.AllMediaTypes {
		if n := s.Counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// showSniff prints a stored report.
func showSniff(ctx context.Context, db *database.SniffDB, id string, out io.Writer) error {
	r, err := db.GetSniff(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load sniff: %w", err)
	}
	if r == nil {
		return fmt.Errorf("%w: %s", database.ErrSniffNotFound, id)
	}
	_, err = report.NewSimpleWriter(out, report.WithShowEmpty(true)).Write(r)
	return err
}

// pruneHistory deletes sniffs started before cutoff.
func pruneHistory(ctx context.Context, db *database.SniffDB, cutoff time.Time, out io.Writer) error {
	n, err := db.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d sniffs started before %s\n", n, cutoff.Format("2006-01-02 15:04:05"))
	return nil
}
