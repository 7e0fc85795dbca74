package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mynest/mediasniff/internal/bridge"
	"github.com/mynest/mediasniff/internal/config"
	"github.com/mynest/mediasniff/internal/database"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge for browser extensions",
		Long: `Serve starts the HTTP bridge that browser extensions and other hosts use
to sniff the page they display and to submit downloads to MyNest.

The bridge answers a sniff request as soon as sizes are known. Video
thumbnails are captured afterwards and pushed to subscribers of the
event stream.

Routes:
  POST /api/v1/sniff          sniff a page (url, html, entries)
  GET  /api/v1/sniff/latest   last result for ?url=
  GET  /api/v1/events         thumbnail updates (server-sent events)
  POST /api/v1/download       submit URLs to MyNest
  GET  /health                liveness

Examples:
  # Listen on the default loopback address
  mediasniff serve

  # Keep results across restarts
  mediasniff serve --save --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Bool("save", false,
		"Store results in the local database instead of memory")

	addConnectionFlags(cmd)
	addPipelineFlags(cmd, true)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := readConnectionFlags(cmd, cfg); err != nil {
		return err
	}
	if err := readPipelineFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
		return err
	}
	if cfg.SaveToDB, err = cmd.Flags().GetBool("save"); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}

	return runServe(ctx, cfg, logger, ln, cmd.ErrOrStderr())
}

// runServe serves the bridge on ln until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener, status io.Writer) error {
	env, err := newEnvironment(ctx, cfg, logger, status)
	if err != nil {
		_ = ln.Close() //nolint:errcheck // listener was never served
		return err
	}
	defer env.Close()

	b, closeBridge, err := newBridge(env)
	if err != nil {
		_ = ln.Close() //nolint:errcheck // listener was never served
		return err
	}
	defer closeBridge()

	fmt.Fprintf(status, "Bridge listening on http://%s\n", ln.Addr())
	logger.Info("bridge started", "address", ln.Addr().String(), "saveToDB", cfg.SaveToDB)

	return b.Serve(ctx, ln)
}

// newBridge wires the environment's components into a Bridge. The
// returned function releases the store.
func newBridge(env *environment) (*bridge.Bridge, func(), error) {
	cfg := env.cfg

	sn, err := env.sniffer()
	if err != nil {
		return nil, nil, err
	}

	opts := []bridge.Option{
		bridge.WithFetcher(env.fetcher()),
		bridge.WithSniffer(sn),
		bridge.WithResolver(env.resolver()),
		bridge.WithLogger(env.logger),
	}
	if p := env.prober(); p != nil {
		opts = append(opts, bridge.WithDimensionProber(p))
	}
	if c := env.capturer(); c != nil {
		opts = append(opts, bridge.WithCapturer(c))
	}

	client, err := newMyNestClient(cfg, env.logger)
	switch {
	case err == nil:
		opts = append(opts, bridge.WithSubmitter(client))
	case errors.Is(err, config.ErrMissingAPIURL):
		env.logger.Warn("MyNest is not configured; downloads are disabled")
	default:
		return nil, nil, err
	}

	closeStore := func() {}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		opts = append(opts, bridge.WithStore(db))
		closeStore = func() {
			if err := db.Close(); err != nil {
				env.logger.Error("failed to close database", "error", err)
			}
		}
	}

	return bridge.New(opts...), closeStore, nil
}
