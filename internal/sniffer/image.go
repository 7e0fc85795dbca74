package sniffer

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/model"
)

// imageSourceAttrs are checked in order; lazy loaders keep the real
// address in a data attribute and a placeholder in src.
var imageSourceAttrs = []string{"src", "data-src", "data-original", "data-lazy-src"}

// ImageTagStrategy scans <img> elements.
type ImageTagStrategy struct{}

// NewImageTagStrategy creates the image tag strategy.
func NewImageTagStrategy() *ImageTagStrategy {
	return &ImageTagStrategy{}
}

// Name returns the strategy name.
func (s *ImageTagStrategy) Name() string {
	return "ImageTag"
}

// Priority returns the strategy priority.
func (s *ImageTagStrategy) Priority() int {
	return PriorityImageTag
}

// Detect implements Strategy.
func (s *ImageTagStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	in.Page.Find("img").Each(func(_ int, img *goquery.Selection) {
		u, ok := in.claim(in.firstValid(attrs(img, imageSourceAttrs...)...))
		if !ok {
			return
		}

		r := model.NewMediaResource(u, model.MediaTypeImage)
		r.Width = intAttr(img, "width")
		r.Height = intAttr(img, "height")
		r.Alt = firstAttr(img, "alt", "title")
		found = append(found, r)
	})

	return found, nil
}
