package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mynest/mediasniff/internal/bridge"
	"github.com/mynest/mediasniff/internal/mynest"
)

// errNoURLs is returned when the submit input holds no usable URL.
var errNoURLs = errors.New("no downloadable URL found in input")

// NewSubmitCmd creates the submit command.
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [text]...",
		Short: "Submit URLs to MyNest for download",
		Long: `Submit extracts every http(s) URL from its arguments and queues each one
for download in MyNest. The arguments may be plain URLs or any text
containing them, such as a pasted message.

MyNest is configured in the mynest section of the configuration file.

Examples:
  mediasniff submit https://cdn.example.com/clip.mp4
  mediasniff submit "look at https://example.com/a.jpg and https://example.com/b.jpg"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSubmitCmd,
	}
	return cmd
}

// runSubmitCmd executes the submit command.
func runSubmitCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	client, err := newMyNestClient(cfg, logger)
	if err != nil {
		return err
	}
	return runSubmit(cmd.Context(), client, strings.Join(args, "\n"), cmd.OutOrStdout())
}

// runSubmit submits every URL in text. All URLs are tried; the error
// reports the rejected ones.
func runSubmit(ctx context.Context, s bridge.Submitter, text string, out io.Writer) error {
	urls := mynest.ExtractURLs(text)
	if len(urls) == 0 {
		return errNoURLs
	}

	var errs []error
	for _, u := range urls {
		task, err := s.Submit(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		if task != nil {
			fmt.Fprintf(out, "Queued %s (task %d)\n", u, task.ID)
		} else {
			fmt.Fprintf(out, "Queued %s\n", u)
		}
	}
	return errors.Join(errs...)
}

// NewTasksCmd creates the tasks command.
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List MyNest download tasks submitted by mediasniff",
		Long: `Tasks lists the download tasks MyNest holds for mediasniff, newest first.

Examples:
  mediasniff tasks
  mediasniff tasks --status failed --status pending
  mediasniff tasks --all --page 2`,
		Args: cobra.NoArgs,
		RunE: runTasksCmd,
	}

	cmd.Flags().StringSlice("status", nil,
		"Only list tasks with this status (repeatable)")
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("page-size", 20, "Tasks per page")
	cmd.Flags().Bool("all", false, "Include tasks submitted by other plugins")

	return cmd
}

// runTasksCmd executes the tasks command.
func runTasksCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	q := mynest.TaskQuery{PluginName: mynest.PluginName}
	if q.Statuses, err = cmd.Flags().GetStringSlice("status"); err != nil {
		return err
	}
	if q.Page, err = cmd.Flags().GetInt("page"); err != nil {
		return err
	}
	if q.PageSize, err = cmd.Flags().GetInt("page-size"); err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	if all {
		q.PluginName = ""
	}

	client, err := newMyNestClient(cfg, logger)
	if err != nil {
		return err
	}
	tasks, err := client.ListTasks(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	writeTasks(cmd.OutOrStdout(), tasks)
	return nil
}

// writeTasks prints one line per task.
func writeTasks(out io.Writer, tasks []mynest.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found")
		return
	}

	fmt.Fprintf(out, "  %-6s  %-11s  %-14s  %s\n", "ID", "Status", "Created", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, t := range tasks {
		fmt.Fprintf(out, "  %-6d  %-11s  %-14s  %s\n",
			t.ID, t.Status, humanize.Time(t.CreatedAt), truncate(t.URL, 80))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// NewPingCmd creates the ping command.
func NewPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to MyNest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := newMyNestClient(cfg, setupLogger(cmd.ErrOrStderr(), cfg))
			if err != nil {
				return err
			}
			return runPing(cmd.Context(), client, cfg.File.MyNest.APIURL, cmd.OutOrStdout())
		},
	}
}

// runPing checks MyNest health and reports the round trip time.
func runPing(ctx context.Context, client *mynest.Client, apiURL string, out io.Writer) error {
	start := time.Now()
	h, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("connection to %s failed: %w", apiURL, err)
	}
	fmt.Fprintf(out, "Connected to %s at %s (status: %s, %s)\n",
		h.Name, apiURL, h.Status, time.Since(start).Round(time.Millisecond))
	return nil
}
