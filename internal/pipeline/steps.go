package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
	"github.com/mynest/mediasniff/internal/sizing"
	"github.com/mynest/mediasniff/internal/sniffer"
	"github.com/mynest/mediasniff/internal/thumbnail"
)

// Step names as recorded in SniffReport.PerformedSteps.
const (
	StepFetch      = "fetch"
	StepSnapshot   = "snapshot"
	StepDetect     = "detect"
	StepDimensions = "dimensions"
	StepSize       = "size"
	StepThumbnails = "thumbnails"
)

// FetchStep loads the page over HTTP.
type FetchStep struct {
	fetcher *page.Fetcher

	// log replaces the page's resource log when set, e.g. from a HAR file.
	log *page.ResourceLog
}

// FetchStepOption configures a FetchStep.
type FetchStepOption func(*FetchStep)

// WithResourceLog attaches network telemetry recorded elsewhere.
func WithResourceLog(log *page.ResourceLog) FetchStepOption {
	return func(s *FetchStep) {
		s.log = log
	}
}

// NewFetchStep creates a step that downloads the page with fetcher.
func NewFetchStep(fetcher *page.Fetcher, opts ...FetchStepOption) *FetchStep {
	s := &FetchStep{fetcher: fetcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do fetches the page. Failure marks the report unreachable.
func (s *FetchStep) Do(ctx context.Context, job *Job) error {
	doc, err := s.fetcher.Fetch(ctx, job.Report.PageURL)
	if err != nil {
		job.Report.Unreachable = true
		return err
	}
	if s.log != nil {
		doc.SetResourceLog(s.log)
	}
	job.Document = doc
	job.Report.Title = doc.Title()
	return nil
}

// SnapshotStep loads the page from HTML captured elsewhere, such as the
// serialized DOM of a browser tab.
type SnapshotStep struct {
	html string
	log  *page.ResourceLog
}

// NewSnapshotStep creates a step that parses html. log may be nil.
func NewSnapshotStep(html string, log *page.ResourceLog) *SnapshotStep {
	return &SnapshotStep{html: html, log: log}
}

// Name returns the step name.
func (s *SnapshotStep) Name() string {
	return StepSnapshot
}

// Do parses the snapshot. An unusable snapshot marks the report
// unreachable, as a page that failed to load would.
func (s *SnapshotStep) Do(_ context.Context, job *Job) error {
	doc, err := page.ParseString(s.html, job.Report.PageURL)
	if err != nil {
		job.Report.Unreachable = true
		return fmt.Errorf("%w: %w", page.ErrPageUnreachable, err)
	}
	if s.log != nil {
		doc.SetResourceLog(s.log)
	}
	job.Document = doc
	job.Report.Title = doc.Title()
	return nil
}

// DetectStep runs the detection strategies over the loaded page.
type DetectStep struct {
	sniffer *sniffer.Sniffer
}

// NewDetectStep creates a detection step.
func NewDetectStep(s *sniffer.Sniffer) *DetectStep {
	return &DetectStep{sniffer: s}
}

// Name returns the step name.
func (s *DetectStep) Name() string {
	return StepDetect
}

// Do replaces the report's resources with the detected ones.
func (s *DetectStep) Do(ctx context.Context, job *Job) error {
	if job.Document == nil {
		return ErrNoDocument
	}
	job.Report.Resources = s.sniffer.Sniff(ctx, job.Document)
	return nil
}

// DimensionStep fills in missing image dimensions.
type DimensionStep struct {
	prober *sizing.DimensionProber
}

// NewDimensionStep creates a dimension probing step.
func NewDimensionStep(prober *sizing.DimensionProber) *DimensionStep {
	return &DimensionStep{prober: prober}
}

// Name returns the step name.
func (s *DimensionStep) Name() string {
	return StepDimensions
}

// Do probes image dimensions. It never fails.
func (s *DimensionStep) Do(ctx context.Context, job *Job) error {
	s.prober.Probe(ctx, job.Report.Resources)
	return nil
}

// SizeStep resolves resource sizes and sorts the resources largest first.
type SizeStep struct {
	resolver *sizing.Resolver
}

// NewSizeStep creates a size resolution step.
func NewSizeStep(resolver *sizing.Resolver) *SizeStep {
	return &SizeStep{resolver: resolver}
}

// Name returns the step name.
func (s *SizeStep) Name() string {
	return StepSize
}

// Do resolves sizes and sorts. It never fails.
func (s *SizeStep) Do(ctx context.Context, job *Job) error {
	var log *page.ResourceLog
	if job.Document != nil {
		log = job.Document.ResourceLog()
	}
	s.resolver.Resolve(ctx, log, job.Report.Resources)
	sizing.SortBySize(job.Report.Resources)
	return nil
}

// ThumbnailStep captures video thumbnails before the report is returned.
// The bridge runs the capturer detached instead, so its first response is
// not delayed.
type ThumbnailStep struct {
	capturer *thumbnail.Capturer
	logger   *slog.Logger
}

// NewThumbnailStep creates a synchronous thumbnail step.
func NewThumbnailStep(capturer *thumbnail.Capturer, logger *slog.Logger) *ThumbnailStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThumbnailStep{capturer: capturer, logger: logger}
}

// Name returns the step name.
func (s *ThumbnailStep) Name() string {
	return StepThumbnails
}

// Do captures thumbnails and applies them to the report. It never fails.
func (s *ThumbnailStep) Do(ctx context.Context, job *Job) error {
	n := s.capturer.Backfill(ctx, job.Report.ID, job.Report.Resources, func(update model.ThumbnailUpdate) {
		job.Report.ApplyThumbnail(update)
	})
	s.logger.Debug("thumbnails captured", "page", job.Report.PageURL, "count", n)
	return nil
}
