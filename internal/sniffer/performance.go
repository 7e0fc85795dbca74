package sniffer

import (
	"context"

	"github.com/mynest/mediasniff/internal/model"
)

// PerformanceAPIStrategy reads the network resource log. It finds media
// that was loaded by scripts and never appeared in the markup.
type PerformanceAPIStrategy struct{}

// NewPerformanceAPIStrategy creates the resource log strategy.
func NewPerformanceAPIStrategy() *PerformanceAPIStrategy {
	return &PerformanceAPIStrategy{}
}

// Name returns the strategy name.
func (s *PerformanceAPIStrategy) Name() string {
	return "PerformanceAPI"
}

// Priority returns the strategy priority.
func (s *PerformanceAPIStrategy) Priority() int {
	return PriorityPerformanceAPI
}

// Detect implements Strategy.
func (s *PerformanceAPIStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	for _, entry := range in.Page.ResourceLog().Entries() {
		u, ok := in.Page.Resolve(entry.Name)
		if !ok || in.Seen.Has(u) {
			continue
		}
		mediaType, ok := in.Classifier.Classify(u, entry.InitiatorType)
		if !ok {
			continue
		}
		in.Seen.Add(u)
		found = append(found, model.NewMediaResource(u, mediaType))
	}

	return found, nil
}
