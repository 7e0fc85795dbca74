package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mediasniff.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediasniff",
		Short: "Find and download the media resources of a web page",
		Long: `mediasniff detects the video, audio and image resources of a web page.

It runs several detection strategies over the page (media tags, CSS
backgrounds, lazy-load attributes, network timing and inline scripts),
resolves the size of every resource and lists them largest first.
Selected resources can be submitted to a MyNest server for download.

Use "mediasniff serve" to run the local bridge for browser extensions.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .mediasniff in current or home directory)")

	cmd.AddCommand(NewSniffCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewSubmitCmd())
	cmd.AddCommand(NewTasksCmd())
	cmd.AddCommand(NewPingCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
