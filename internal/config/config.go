package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "mediasniff"

	// DefaultTorProxyAddress is the standard Tor SOCKS5 port, used when
	// --tor-proxy is given without an address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTimeout bounds a page load.
	DefaultTimeout = 30 * time.Second

	// DefaultProbeTimeout bounds a single HEAD size probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultProbeConcurrency is the number of size probes in flight.
	DefaultProbeConcurrency = 16

	// DefaultBatchSize is the number of pages sniffed concurrently.
	DefaultBatchSize = 4

	// DefaultThumbnailTimeout bounds one thumbnail capture.
	DefaultThumbnailTimeout = 2 * time.Second

	// DefaultThumbnailLimit is the number of videos thumbnailed per sniff.
	DefaultThumbnailLimit = 3

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxScriptSize limits how much of one inline script is scanned.
	DefaultMaxScriptSize = 4 * 1024 * 1024

	// DefaultMaxStylesheets limits how many linked stylesheets are loaded.
	DefaultMaxStylesheets = 8

	// DefaultListenAddress is where `serve` listens. Loopback only, since the
	// bridge forwards downloads with the configured API token.
	DefaultListenAddress = "127.0.0.1:8765"

	// DefaultTorStartupTimeout bounds embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultHistoryLimit is the number of sniffs listed by `history`.
	DefaultHistoryLimit = 20
)

// Config holds all options of one mediasniff invocation. It is populated
// from CLI flags and the config file and passed down explicitly.
type Config struct {
	// Targets are the page URLs to sniff.
	Targets []string

	// HTMLFile is a saved page snapshot to sniff instead of fetching.
	// Only valid with a single target, which is then used as the base URL.
	HTMLFile string

	// HARFile is a HAR export whose entries become the resource log.
	HARFile string

	// TorProxyAddress routes all traffic through a SOCKS5 proxy when set.
	TorProxyAddress string

	// UseEmbeddedTor starts a Tor daemon through tornago.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Timeout bounds each page load.
	Timeout time.Duration

	// ProbeTimeout bounds each HEAD size probe.
	ProbeTimeout time.Duration

	// ProbeConcurrency limits concurrent size probes per sniff.
	ProbeConcurrency int

	// BatchSize is the number of pages sniffed concurrently.
	BatchSize int

	// Thumbnails enables thumbnail capture for videos.
	Thumbnails bool

	// ThumbnailTimeout bounds each capture attempt.
	ThumbnailTimeout time.Duration

	// ThumbnailLimit is the number of videos considered per sniff.
	ThumbnailLimit int

	// Dimensions enables the image dimension probe.
	Dimensions bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON selects the JSON log handler.
	LogJSON bool

	// ConfigFilePath is the explicit --config path.
	ConfigFilePath string

	// File is the loaded config file. Never nil after LoadInto.
	File *File

	// JSONReport and MarkdownReport select the report format.
	// Both false means the plain text report.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile receives the report instead of stdout.
	ReportFile string

	// DBDir holds the SQLite database.
	DBDir string

	// SaveToDB stores every sniff in the database.
	SaveToDB bool

	// Submit forwards resources of this type ("video", "image", "audio"
	// or "all") to MyNest after sniffing. Empty disables submission.
	Submit string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits how much of a page is read.
	MaxBodySize int64

	// MaxScriptSize limits how much of one script is scanned.
	MaxScriptSize int

	// MaxStylesheets limits linked stylesheet loading. 0 disables it.
	MaxStylesheets int

	// ListenAddress is where `serve` listens.
	ListenAddress string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		TorStartupTimeout: DefaultTorStartupTimeout,
		Timeout:           DefaultTimeout,
		ProbeTimeout:      DefaultProbeTimeout,
		ProbeConcurrency:  DefaultProbeConcurrency,
		BatchSize:         DefaultBatchSize,
		ThumbnailTimeout:  DefaultThumbnailTimeout,
		ThumbnailLimit:    DefaultThumbnailLimit,
		MaxBodySize:       DefaultMaxBodySize,
		MaxScriptSize:     DefaultMaxScriptSize,
		MaxStylesheets:    DefaultMaxStylesheets,
		ListenAddress:     DefaultListenAddress,
		DBDir:             XDGDataDir(),
		File:              NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for mediasniff.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mediasniff.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks options shared by all commands and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 || c.ProbeTimeout <= 0 || c.ThumbnailTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 || c.ProbeConcurrency <= 0 {
		return ErrInvalidBatchSize
	}
	if c.ThumbnailLimit < 0 {
		return ErrInvalidThumbnailLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 || c.MaxScriptSize < 0 || c.MaxStylesheets < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.TorProxyAddress != "" && c.UseEmbeddedTor {
		return ErrConflictingProxies
	}
	if c.Submit != "" && !IsSubmitType(c.Submit) {
		return ErrInvalidSubmitType
	}
	return nil
}

// ValidateSniff additionally checks the options of the sniff command.
func (c *Config) ValidateSniff() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.HTMLFile != "" && len(c.Targets) != 1 {
		return ErrSnapshotNeedsOneTarget
	}
	if c.HARFile != "" && len(c.Targets) != 1 {
		return ErrSnapshotNeedsOneTarget
	}
	return c.Validate()
}

// IsSubmitType reports whether s is a valid --submit value.
func IsSubmitType(s string) bool {
	switch s {
	case "all", "video", "image", "audio":
		return true
	default:
		return false
	}
}
