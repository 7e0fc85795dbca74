package sniffer

import (
	"context"

	"github.com/mynest/mediasniff/internal/model"
)

// BackgroundImageStrategy reads the computed background-image of every element.
type BackgroundImageStrategy struct{}

// NewBackgroundImageStrategy creates the background image strategy.
func NewBackgroundImageStrategy() *BackgroundImageStrategy {
	return &BackgroundImageStrategy{}
}

// Name returns the strategy name.
func (s *BackgroundImageStrategy) Name() string {
	return "BackgroundImage"
}

// Priority returns the strategy priority.
func (s *BackgroundImageStrategy) Priority() int {
	return PriorityBackgroundImage
}

// Detect implements Strategy.
func (s *BackgroundImageStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	for _, ref := range in.Page.BackgroundImages() {
		u, ok := ref.Resolve()
		if !ok || !in.Seen.Add(u) {
			continue
		}
		found = append(found, model.NewMediaResource(u, model.MediaTypeImage))
	}

	return found, nil
}
