package sniffer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mynest/mediasniff/internal/media"
	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
)

// Sniffer runs detection strategies against a page.
// A Sniffer holds no per-sniff state and may be shared between goroutines.
type Sniffer struct {
	strategies []Strategy
	classifier *media.Classifier
	logger     *slog.Logger
}

// Option configures a Sniffer.
type Option func(*Sniffer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sniffer) {
		s.logger = logger
	}
}

// WithClassifier sets the classifier used by the resource log and script strategies.
func WithClassifier(c *media.Classifier) Option {
	return func(s *Sniffer) {
		s.classifier = c
	}
}

// WithStrategies replaces the built-in strategy set.
func WithStrategies(strategies ...Strategy) Option {
	return func(s *Sniffer) {
		s.strategies = strategies
	}
}

// DefaultStrategies returns the built-in strategies.
func DefaultStrategies(scriptOpts ...ScriptOption) []Strategy {
	return []Strategy{
		NewImageTagStrategy(),
		NewBackgroundImageStrategy(),
		NewVideoTagStrategy(),
		NewAudioTagStrategy(),
		NewPerformanceAPIStrategy(),
		NewCustomAttributesStrategy(),
		NewScriptExtractionStrategy(scriptOpts...),
	}
}

// New creates a Sniffer. Without options it uses DefaultStrategies and
// media.DefaultClassifier.
func New(opts ...Option) *Sniffer {
	s := &Sniffer{}
	for _, opt := range opts {
		opt(s)
	}

	if s.strategies == nil {
		s.strategies = DefaultStrategies()
	}
	if s.classifier == nil {
		s.classifier = media.DefaultClassifier()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	// Copy before sorting so callers' slices are left alone.
	s.strategies = append([]Strategy(nil), s.strategies...)
	sort.SliceStable(s.strategies, func(i, j int) bool {
		return s.strategies[i].Priority() < s.strategies[j].Priority()
	})

	return s
}

// StrategyNames returns the strategy names in execution order.
func (s *Sniffer) StrategyNames() []string {
	names := make([]string, len(s.strategies))
	for i, st := range s.strategies {
		names[i] = st.Name()
	}
	return names
}

// Sniff runs every strategy against doc and returns the concatenated
// results in strategy order. The result is not sorted.
//
// Parameters:
//   - ctx: Cancels the run between strategies
//   - doc: The parsed page, including its resource log and stylesheets
//
// Returns the detected resources, never nil. Sniff never fails. Strategy
// failures are logged and skipped; if ctx is cancelled, the resources
// found so far are returned.
//
// Design decision: Strategies run one after another over a shared SeenSet
// rather than concurrently:
//  1. A URL is claimed by the first strategy that reports it, so its type
//     follows strategy priority
//  2. A failed strategy's claims are released, leaving those URLs free for
//     later strategies
func (s *Sniffer) Sniff(ctx context.Context, doc *page.Document) []*model.MediaResource {
	in := &DetectInput{
		Page:       doc,
		Seen:       NewSeenSet(),
		Classifier: s.classifier,
	}

	resources := make([]*model.MediaResource, 0)
	emitted := make(map[string]struct{})

	for _, st := range s.strategies {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("sniff cancelled", "strategy", st.Name(), "page", doc.URL(), "reason", err)
			break
		}

		found := s.runStrategy(ctx, st, in)
		s.logger.Debug("strategy completed",
			"strategy", st.Name(),
			"page", doc.URL(),
			"found", len(found),
		)

		for _, r := range found {
			// Guard against strategies that break the claim contract.
			if r == nil || !r.Type.IsValid() || !in.Seen.Has(r.URL) {
				continue
			}
			if _, dup := emitted[r.URL]; dup {
				continue
			}
			emitted[r.URL] = struct{}{}
			resources = append(resources, r)
		}
	}

	return resources
}

// runStrategy executes one strategy, isolating errors and panics.
// On failure the URLs the strategy claimed are released.
func (s *Sniffer) runStrategy(ctx context.Context, st Strategy, in *DetectInput) (found []*model.MediaResource) {
	checkpoint := in.Seen.mark()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("strategy failed",
				"strategy", st.Name(),
				"page", in.Page.URL(),
				"error", fmt.Errorf("%w: %v", ErrStrategyPanic, r),
			)
			in.Seen.rollback(checkpoint)
			found = nil
		}
	}()

	found, err := st.Detect(ctx, in)
	if err != nil {
		s.logger.Error("strategy failed",
			"strategy", st.Name(),
			"page", in.Page.URL(),
			"error", err,
		)
		in.Seen.rollback(checkpoint)
		return nil
	}
	return found
}
