package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mynest/mediasniff/internal/config"
	applog "github.com/mynest/mediasniff/internal/log"
	"github.com/mynest/mediasniff/internal/media"
	"github.com/mynest/mediasniff/internal/mynest"
	"github.com/mynest/mediasniff/internal/page"
	"github.com/mynest/mediasniff/internal/sizing"
	"github.com/mynest/mediasniff/internal/sniffer"
	"github.com/mynest/mediasniff/internal/thumbnail"
	"github.com/mynest/mediasniff/internal/transport"
)

// getBoolFlag retrieves a flag from the command or the root's persistent
// flags. Missing flags read as false.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getStringFlag is getBoolFlag for string flags.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// loadConfig creates a Config from the global flags and the config file.
// If --config was given, a missing file is an error; otherwise defaults
// are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	cfg.ConfigFilePath = getStringFlag(cmd, "config")

	if err := cfg.LoadInto(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the redacting structured logger for cfg.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return applog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return applog.NewSecureLogger(w, cfg.Verbose)
}

// environment holds the components shared by all pages of one invocation.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client

	// tor is the embedded daemon, if one was started.
	tor *transport.EmbeddedTor
}

// newEnvironment builds the HTTP client, routing it through a Tor proxy
// when configured. Call Close when done.
func newEnvironment(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*environment, error) {
	env := &environment{cfg: cfg, logger: logger}

	var p *transport.Proxy
	switch {
	case cfg.TorProxyAddress != "":
		var err error
		p, err = transport.NewProxy(cfg.TorProxyAddress)
		if err != nil {
			return nil, err
		}
		if st := p.CheckConnection(ctx); st != transport.ProxyStatusOK {
			return nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s): %w",
				st, cfg.TorProxyAddress, st.Error())
		}
		logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)

	case cfg.UseEmbeddedTor:
		fmt.Fprintln(status, "Starting embedded Tor daemon...")
		env.tor = transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := env.tor.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		var err error
		p, err = env.tor.Proxy()
		if err != nil {
			env.Close()
			return nil, err
		}
		logger.Info("embedded Tor daemon started", "socksAddr", env.tor.SocksAddr())
		fmt.Fprintf(status, "SOCKS proxy: %s\n", env.tor.SocksAddr())
	}

	env.client = transport.NewHTTPClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithHeaderSource(cfg.File),
		transport.WithProxy(p),
	)
	return env, nil
}

// Close stops the embedded Tor daemon, if any.
func (e *environment) Close() {
	if e.tor == nil {
		return
	}
	if err := e.tor.Stop(); err != nil {
		e.logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// fetcher returns a page fetcher using the environment's client.
func (e *environment) fetcher() *page.Fetcher {
	return page.NewFetcher(e.client,
		page.WithMaxBodySize(e.cfg.MaxBodySize),
		page.WithMaxStylesheets(e.cfg.MaxStylesheets),
		page.WithFetcherLogger(e.logger),
	)
}

// sniffer returns a sniffer that knows the configured platforms.
func (e *environment) sniffer() (*sniffer.Sniffer, error) {
	classifier, err := media.NewClassifier(e.cfg.File.PlatformList())
	if err != nil {
		return nil, fmt.Errorf("invalid platform configuration: %w", err)
	}
	return sniffer.New(
		sniffer.WithLogger(e.logger),
		sniffer.WithClassifier(classifier),
		sniffer.WithStrategies(sniffer.DefaultStrategies(
			sniffer.WithMaxScriptSize(e.cfg.MaxScriptSize),
		)...),
	), nil
}

func (e *environment) resolver() *sizing.Resolver {
	return sizing.NewResolver(e.client,
		sizing.WithProbeTimeout(e.cfg.ProbeTimeout),
		sizing.WithConcurrency(e.cfg.ProbeConcurrency),
		sizing.WithLogger(e.logger),
	)
}

// prober returns nil unless dimension probing is enabled.
func (e *environment) prober() *sizing.DimensionProber {
	if !e.cfg.Dimensions {
		return nil
	}
	return sizing.NewDimensionProber(e.client,
		sizing.WithDimensionConcurrency(e.cfg.ProbeConcurrency),
		sizing.WithDimensionLogger(e.logger),
	)
}

// capturer returns nil unless thumbnails are enabled.
func (e *environment) capturer() *thumbnail.Capturer {
	if !e.cfg.Thumbnails {
		return nil
	}
	return thumbnail.NewCapturer(
		thumbnail.WithTimeout(e.cfg.ThumbnailTimeout),
		thumbnail.WithLimit(e.cfg.ThumbnailLimit),
		thumbnail.WithLogger(e.logger),
	)
}

// newMyNestClient creates a MyNest client from the config file.
// The MyNest API is reached directly, never through the Tor proxy.
func newMyNestClient(cfg *config.Config, logger *slog.Logger) (*mynest.Client, error) {
	if cfg.File.MyNest.APIURL == "" {
		return nil, config.ErrMissingAPIURL
	}
	return mynest.NewClient(cfg.File.MyNest.APIURL,
		mynest.WithToken(cfg.File.MyNest.APIToken),
		mynest.WithCategory(cfg.File.MyNest.Category),
		mynest.WithLogger(logger),
	)
}

// addConnectionFlags registers the flags controlling how pages and media
// are requested.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("tor-proxy", "e", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page load")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for each size probe")
	cmd.Flags().String("user-agent", "",
		"User-Agent header to send")
}

func readConnectionFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
		return err
	}
	if cfg.UseEmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
		return err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
		return err
	}
	cfg.UserAgent, err = flags.GetString("user-agent")
	return err
}

// addPipelineFlags registers the optional pipeline stages. thumbnails is
// the default of --thumbnails.
func addPipelineFlags(cmd *cobra.Command, thumbnails bool) {
	cmd.Flags().Bool("thumbnails", thumbnails,
		"Capture thumbnails for up to 3 videos (requires ffmpeg)")
	cmd.Flags().Bool("dimensions", false,
		"Read missing image dimensions from image headers")
}

func readPipelineFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.Thumbnails, err = cmd.Flags().GetBool("thumbnails"); err != nil {
		return err
	}
	cfg.Dimensions, err = cmd.Flags().GetBool("dimensions")
	return err
}
