package sniffer

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/model"
)

// streamAttrs are non-standard attributes players use to carry a stream URL.
var streamAttrs = []string{"data-video-url", "data-video-src", "data-stream-url"}

// CustomAttributesStrategy is the fallback for elements that carry a
// video address in a data attribute instead of a media element.
type CustomAttributesStrategy struct{}

// NewCustomAttributesStrategy creates the custom attribute strategy.
func NewCustomAttributesStrategy() *CustomAttributesStrategy {
	return &CustomAttributesStrategy{}
}

// Name returns the strategy name.
func (s *CustomAttributesStrategy) Name() string {
	return "CustomAttributes"
}

// Priority returns the strategy priority.
func (s *CustomAttributesStrategy) Priority() int {
	return PriorityCustomAttributes
}

// Detect implements Strategy.
func (s *CustomAttributesStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	in.Page.Find("[data-video-url], [data-video-src], [data-stream-url]").Each(func(_ int, el *goquery.Selection) {
		u, ok := in.claim(in.firstValid(attrs(el, streamAttrs...)...))
		if !ok {
			return
		}
		found = append(found, model.NewMediaResource(u, model.MediaTypeVideo))
	})

	return found, nil
}
