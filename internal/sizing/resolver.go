package sizing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
)

const (
	// DefaultProbeTimeout bounds a single HEAD request.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultConcurrency is the number of HEAD requests in flight at once.
	DefaultConcurrency = 16
)

// Resolver fills in resource sizes.
type Resolver struct {
	client       *http.Client
	probeTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProbeTimeout sets the per-request timeout of the HEAD fallback.
// Non-positive values are ignored.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithConcurrency limits how many HEAD requests run at once.
// Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver that probes through client.
// A nil client means http.DefaultClient.
func NewResolver(client *http.Client, opts ...Option) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Resolver{
		client:       client,
		probeTimeout: DefaultProbeTimeout,
		concurrency:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// ResolveSize returns the size of res in bytes, or 0 if it cannot be
// determined. The resource log is consulted first; a HEAD request is only
// issued when the log has no usable entry.
func (r *Resolver) ResolveSize(ctx context.Context, log *page.ResourceLog, res *model.MediaResource) int64 {
	if entry, ok := log.Lookup(res.URL); ok {
		if size := entry.Size(); size > 0 {
			return size
		}
	}
	return r.head(ctx, res.URL)
}

// Resolve sets the size of every resource whose size is still unknown.
// Lookups run concurrently and Resolve returns once all of them settled.
//
// Parameters:
//   - ctx: Parent of every HEAD probe; each probe has its own timeout
//   - log: Passive network log of the page, may be nil
//   - resources: Updated in place; known sizes are kept
//
// Sizes that cannot be determined stay 0. Resolve does not sort.
func (r *Resolver) Resolve(ctx context.Context, log *page.ResourceLog, resources []*model.MediaResource) {
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, res := range resources {
		if res == nil || res.HasKnownSize() {
			continue
		}
		g.Go(func() error {
			res.Size = r.ResolveSize(ctx, log, res)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // lookups never return errors
}

// head issues a HEAD request and parses Content-Length.
func (r *Resolver) head(ctx context.Context, rawURL string) int64 {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		r.logger.Debug("size probe failed", "url", rawURL, "error", err)
		return 0
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("size probe failed", "url", rawURL, "error", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Debug("size probe rejected", "url", rawURL, "status", resp.StatusCode)
		return 0
	}

	return parseContentLength(resp.Header.Get("Content-Length"))
}

// parseContentLength returns the header value as a byte count, or 0.
func parseContentLength(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
