package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/mynest"
	"github.com/mynest/mediasniff/internal/page"
	"github.com/mynest/mediasniff/internal/pipeline"
	"github.com/mynest/mediasniff/internal/sizing"
	"github.com/mynest/mediasniff/internal/sniffer"
	"github.com/mynest/mediasniff/internal/thumbnail"
)

// DefaultBackfillTimeout bounds a detached thumbnail backfill as a whole.
// Individual captures have their own, shorter timeout.
const DefaultBackfillTimeout = 30 * time.Second

// Request asks the bridge to sniff a page.
type Request struct {
	// URL is the page address. It may be empty when HTML is given.
	URL string `json:"url"`

	// HTML is the serialized DOM of the page. When empty, the bridge
	// fetches URL itself.
	HTML string `json:"html,omitempty"`

	// Entries is the page's resource timing log.
	Entries []page.TimingEntry `json:"entries,omitempty"`
}

// Response is the first-phase answer to a Request.
type Response struct {
	// SniffID identifies the sniff; later thumbnail updates carry it.
	SniffID string `json:"sniff_id"`

	// Resources is sorted by size, largest first. Never nil.
	Resources []*model.MediaResource `json:"resources"`

	// Error is set when the sniff failed.
	Error string `json:"error,omitempty"`

	// Unreachable is true when the page itself could not be loaded.
	Unreachable bool `json:"unreachable,omitempty"`
}

// Submitter queues downloads. *mynest.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, rawURL string) (*mynest.Task, error)
}

// Bridge runs sniffs on behalf of hosts.
type Bridge struct {
	fetcher  *page.Fetcher
	sniffer  *sniffer.Sniffer
	resolver *sizing.Resolver

	// prober and capturer are optional stages; nil disables them.
	prober   *sizing.DimensionProber
	capturer *thumbnail.Capturer

	store     Store
	submitter Submitter
	hub       *Hub

	backfillTimeout time.Duration
	logger          *slog.Logger

	// backfills tracks detached thumbnail work.
	backfills sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithFetcher sets the page fetcher used when a request has no HTML.
func WithFetcher(f *page.Fetcher) Option {
	return func(b *Bridge) {
		b.fetcher = f
	}
}

// WithSniffer sets the detection orchestrator.
func WithSniffer(s *sniffer.Sniffer) Option {
	return func(b *Bridge) {
		b.sniffer = s
	}
}

// WithResolver sets the size resolver.
func WithResolver(r *sizing.Resolver) Option {
	return func(b *Bridge) {
		b.resolver = r
	}
}

// WithDimensionProber enables image dimension probing.
func WithDimensionProber(p *sizing.DimensionProber) Option {
	return func(b *Bridge) {
		b.prober = p
	}
}

// WithCapturer enables detached thumbnail capture.
func WithCapturer(c *thumbnail.Capturer) Option {
	return func(b *Bridge) {
		b.capturer = c
	}
}

// WithStore sets where results are kept. The default is a MemoryStore.
func WithStore(s Store) Option {
	return func(b *Bridge) {
		b.store = s
	}
}

// WithSubmitter enables download forwarding.
func WithSubmitter(s Submitter) Option {
	return func(b *Bridge) {
		b.submitter = s
	}
}

// WithBackfillTimeout bounds each detached backfill.
func WithBackfillTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.backfillTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// New creates a Bridge. Unset components get their defaults.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		backfillTimeout: DefaultBackfillTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.fetcher == nil {
		b.fetcher = page.NewFetcher(nil, page.WithFetcherLogger(b.logger))
	}
	if b.sniffer == nil {
		b.sniffer = sniffer.New(sniffer.WithLogger(b.logger))
	}
	if b.resolver == nil {
		b.resolver = sizing.NewResolver(nil, sizing.WithLogger(b.logger))
	}
	if b.store == nil {
		b.store = NewMemoryStore()
	}
	b.hub = NewHub(DefaultSubscriberBuffer, b.logger)

	return b
}

// Subscribe registers for thumbnail updates. The returned function
// unsubscribes.
func (b *Bridge) Subscribe() (<-chan model.ThumbnailUpdate, func()) {
	return b.hub.Subscribe()
}

// Wait blocks until all detached backfills have finished.
func (b *Bridge) Wait() {
	b.backfills.Wait()
}

// Sniff runs the sniff pipeline for req and returns the first-phase
// response. It never panics and never returns a nil resource list.
//
// Parameters:
//   - ctx: Bounds the first phase only
//   - req: The page URL, an optional DOM snapshot and resource log entries
//
// Returns the sized and sorted resources, or an empty list with Error set.
//
// Design decision: Thumbnails are a second phase. Capture runs detached
// from ctx under its own deadline after Sniff returns, and each thumbnail
// reaches subscribers and the store as a separate ThumbnailUpdate. A
// slow or missing ffmpeg therefore never delays the resource list.
func (b *Bridge) Sniff(ctx context.Context, req Request) (resp Response) {
	report := model.NewSniffReport(strings.TrimSpace(req.URL))

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("sniff panicked", "page", report.PageURL, "panic", r)
			resp = Response{
				SniffID:   report.ID,
				Resources: make([]*model.MediaResource, 0),
				Error:     fmt.Sprintf("sniff failed: %v", r),
			}
		}
	}()

	if report.PageURL == "" && req.HTML == "" {
		return Response{
			SniffID:   report.ID,
			Resources: make([]*model.MediaResource, 0),
			Error:     ErrEmptyRequest.Error(),
		}
	}

	err := b.newPipeline(req).Execute(ctx, report)

	resp = Response{
		SniffID:   report.ID,
		Resources: report.Resources,
	}
	switch {
	case errors.Is(err, page.ErrPageUnreachable):
		resp.Unreachable = true
		resp.Error = MsgUnreachable
	case err != nil:
		resp.Error = err.Error()
	}

	if report.PageURL != "" {
		if err := b.store.SaveSniff(ctx, report); err != nil {
			b.logger.Warn("failed to store sniff", "page", report.PageURL, "error", err)
		}
	}

	if err == nil {
		b.startBackfill(ctx, report)
	}
	return resp
}

// newPipeline builds the per-request pipeline.
func (b *Bridge) newPipeline(req Request) *pipeline.Pipeline {
	var log *page.ResourceLog
	if len(req.Entries) > 0 {
		log = page.NewResourceLog(req.Entries)
	}

	p := pipeline.New(pipeline.WithLogger(b.logger))
	if req.HTML != "" {
		p.AddStep(pipeline.NewSnapshotStep(req.HTML, log))
	} else {
		p.AddStep(pipeline.NewFetchStep(b.fetcher, pipeline.WithResourceLog(log)))
	}
	p.AddStep(pipeline.NewDetectStep(b.sniffer))
	if b.prober != nil {
		p.AddStep(pipeline.NewDimensionStep(b.prober))
	}
	p.AddStep(pipeline.NewSizeStep(b.resolver))
	return p
}

// startBackfill captures thumbnails in the background. It works on a copy
// of the resources, so the response already handed out is never modified.
func (b *Bridge) startBackfill(ctx context.Context, report *model.SniffReport) {
	if b.capturer == nil || len(b.capturer.Candidates(report.Resources)) == 0 {
		return
	}

	resources := model.CloneResources(report.Resources)
	sniffID := report.ID
	pageURL := report.PageURL

	b.backfills.Add(1)
	go func() {
		defer b.backfills.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.backfillTimeout)
		defer cancel()

		n := b.capturer.Backfill(ctx, sniffID, resources, func(update model.ThumbnailUpdate) {
			if _, err := b.store.UpdateThumbnail(ctx, update); err != nil {
				b.logger.Warn("failed to store thumbnail", "sniff_id", sniffID, "error", err)
			}
			b.hub.Publish(update)
		})
		b.logger.Debug("thumbnail backfill finished", "page", pageURL, "published", n)
	}()
}

// Latest returns the stored result for pageURL, or nil.
func (b *Bridge) Latest(ctx context.Context, pageURL string) (*model.SniffReport, error) {
	return b.store.LatestForPage(ctx, pageURL)
}

// Download submits every URL to MyNest and returns the created tasks.
// It stops at the first rejection.
func (b *Bridge) Download(ctx context.Context, urls []string) ([]*mynest.Task, error) {
	if b.submitter == nil {
		return nil, ErrNoSubmitter
	}
	if len(urls) == 0 {
		return nil, ErrNoDownloadURL
	}

	tasks := make([]*mynest.Task, 0, len(urls))
	for _, u := range urls {
		task, err := b.submitter.Submit(ctx, u)
		if err != nil {
			return tasks, fmt.Errorf("failed to submit %s: %w", u, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
