package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mynest/mediasniff/internal/media"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("direct connection by default", func(t *testing.T) {
		t.Parallel()
		if cfg.TorProxyAddress != "" || cfg.UseEmbeddedTor {
			t.Errorf("expected no proxy, got %q embedded=%v", cfg.TorProxyAddress, cfg.UseEmbeddedTor)
		}
	})

	t.Run("default probe timeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeTimeout != 5*time.Second {
			t.Errorf("expected ProbeTimeout to be 5s, got %v", cfg.ProbeTimeout)
		}
	})

	t.Run("default thumbnail budget", func(t *testing.T) {
		t.Parallel()
		if cfg.ThumbnailTimeout != 2*time.Second || cfg.ThumbnailLimit != 3 {
			t.Errorf("expected 2s and 3 videos, got %v and %d", cfg.ThumbnailTimeout, cfg.ThumbnailLimit)
		}
	})

	t.Run("default listen address is loopback", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != "127.0.0.1:8765" {
			t.Errorf("unexpected ListenAddress %q", cfg.ListenAddress)
		}
	})

	t.Run("file is never nil", func(t *testing.T) {
		t.Parallel()
		if cfg.File == nil {
			t.Fatal("expected non-nil File")
		}
		if len(cfg.File.PlatformList()) != len(media.DefaultPlatforms) {
			t.Error("expected default platforms")
		}
	})

	t.Run("database lives in XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() || filepath.Base(cfg.DBDir) != AppName {
			t.Errorf("unexpected DBDir %q", cfg.DBDir)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		sniff   bool
		wantErr error
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "single target sniff", sniff: true, modify: func(*Config) {}},
		{name: "no target", sniff: true, modify: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative probe timeout", modify: func(c *Config) { c.ProbeTimeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero thumbnail timeout", modify: func(c *Config) { c.ThumbnailTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "zero probe concurrency", modify: func(c *Config) { c.ProbeConcurrency = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "negative thumbnail limit", modify: func(c *Config) { c.ThumbnailLimit = -1 }, wantErr: ErrInvalidThumbnailLimit},
		{name: "json and markdown", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, wantErr: ErrConflictingReportFormats},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "tor proxy and embedded tor", modify: func(c *Config) {
			c.TorProxyAddress = DefaultTorProxyAddress
			c.UseEmbeddedTor = true
		}, wantErr: ErrConflictingProxies},
		{name: "valid submit type", modify: func(c *Config) { c.Submit = "video" }},
		{name: "invalid submit type", modify: func(c *Config) { c.Submit = "movies" }, wantErr: ErrInvalidSubmitType},
		{name: "snapshot with two targets", sniff: true, modify: func(c *Config) {
			c.Targets = append(c.Targets, "https://example.org/")
			c.HTMLFile = "page.html"
		}, wantErr: ErrSnapshotNeedsOneTarget},
		{name: "har with two targets", sniff: true, modify: func(c *Config) {
			c.Targets = append(c.Targets, "https://example.org/")
			c.HARFile = "page.har"
		}, wantErr: ErrSnapshotNeedsOneTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Targets = []string{"https://example.com/"}
			tt.modify(cfg)

			var err error
			if tt.sniff {
				err = cfg.ValidateSniff()
			} else {
				err = cfg.Validate()
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

const sampleConfig = `
mynest:
  api_url: http://localhost:8080
  api_token: secret
  category: clips
platforms:
  - name: example
    hosts:
      - 'media\.example\.net'
defaults:
  headers:
    Referer: https://default/
  cookie: d=1
sites:
  example.com:
    cookie: site=1
    headers:
      Referer: https://example.com/
  cdn.example.com:
    headers:
      X-Edge: yes
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("parses all sections", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, sampleConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.MyNest.APIURL != "http://localhost:8080" || cf.MyNest.APIToken != "secret" || cf.MyNest.Category != "clips" {
			t.Errorf("unexpected mynest section %+v", cf.MyNest)
		}
		platforms := cf.PlatformList()
		if len(platforms) != 1 || platforms[0].Name != "example" {
			t.Errorf("unexpected platforms %+v", platforms)
		}
		if len(cf.Sites) != 2 {
			t.Errorf("expected 2 sites, got %d", len(cf.Sites))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(writeConfig(t, "mynest: [unclosed")); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid platform pattern", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeConfig(t, "platforms:\n  - name: bad\n    hosts: ['(']\n"))
		if !errors.Is(err, media.ErrInvalidPlatformPattern) {
			t.Errorf("expected ErrInvalidPlatformPattern, got %v", err)
		}
	})

	t.Run("empty sites map is initialized", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, "mynest:\n  api_url: http://x\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected non-nil Sites")
		}
	})
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf, err := LoadConfigFile(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		host        string
		wantCookie  string
		wantReferer string
		wantEdge    string
	}{
		{host: "example.com", wantCookie: "site=1", wantReferer: "https://example.com/"},
		{host: "www.example.com", wantCookie: "site=1", wantReferer: "https://example.com/"},
		{host: "cdn.example.com", wantCookie: "d=1", wantReferer: "https://default/", wantEdge: "yes"},
		{host: "img.cdn.example.com", wantCookie: "d=1", wantReferer: "https://default/", wantEdge: "yes"},
		{host: "EXAMPLE.COM", wantCookie: "site=1", wantReferer: "https://example.com/"},
		{host: "other.org", wantCookie: "d=1", wantReferer: "https://default/"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()

			headers, cookie := cf.HeadersFor(tt.host)
			if cookie != tt.wantCookie {
				t.Errorf("cookie = %q, want %q", cookie, tt.wantCookie)
			}
			if headers["Referer"] != tt.wantReferer {
				t.Errorf("Referer = %q, want %q", headers["Referer"], tt.wantReferer)
			}
			if headers["X-Edge"] != tt.wantEdge {
				t.Errorf("X-Edge = %q, want %q", headers["X-Edge"], tt.wantEdge)
			}
		})
	}

	t.Run("defaults are not modified by merging", func(t *testing.T) {
		t.Parallel()

		cf.GetSiteConfig("example.com")
		if cf.Defaults.Headers["Referer"] != "https://default/" {
			t.Error("defaults were modified")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path exists", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, sampleConfig)
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestConfigLoadInto(t *testing.T) {
	t.Parallel()

	t.Run("explicit file is loaded", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = writeConfig(t, sampleConfig)
		if err := cfg.LoadInto(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.File.MyNest.Category != "clips" {
			t.Errorf("expected loaded file, got %+v", cfg.File.MyNest)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing")
		if err := cfg.LoadInto(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
