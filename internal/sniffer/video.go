package sniffer

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/media"
	"github.com/mynest/mediasniff/internal/model"
)

// blobRecoveryAttrs may hold the original address of a video whose
// src is a blob: URL created by a media source extension player.
var blobRecoveryAttrs = []string{"data-url", "data-video-url", "data-original-src"}

// VideoTagStrategy scans <video> elements and their <source> children.
type VideoTagStrategy struct{}

// NewVideoTagStrategy creates the video tag strategy.
func NewVideoTagStrategy() *VideoTagStrategy {
	return &VideoTagStrategy{}
}

// Name returns the strategy name.
func (s *VideoTagStrategy) Name() string {
	return "VideoTag"
}

// Priority returns the strategy priority.
func (s *VideoTagStrategy) Priority() int {
	return PriorityVideoTag
}

// Detect implements Strategy.
func (s *VideoTagStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	in.Page.Find("video").Each(func(_ int, video *goquery.Selection) {
		width := intAttr(video, "width")
		height := intAttr(video, "height")

		if u, ok := in.claim(videoSource(in, video)); ok {
			r := model.NewMediaResource(u, model.MediaTypeVideo)
			r.Width, r.Height = width, height
			r.Alt = firstAttr(video, "title")
			if poster, ok := in.Page.Resolve(video.AttrOr("poster", "")); ok {
				r.Thumbnail = poster
			}
			found = append(found, r)
		}

		video.Find("source").Each(func(_ int, source *goquery.Selection) {
			u, ok := in.claim(in.firstValid(attrs(source, "src", "data-src")...))
			if !ok {
				return
			}
			r := model.NewMediaResource(u, model.MediaTypeVideo)
			r.Width, r.Height = width, height
			found = append(found, r)
		})
	})

	return found, nil
}

// videoSource returns the element's own source. A blob: source is replaced
// by the first valid recovery attribute; without one the element is skipped.
func videoSource(in *DetectInput, video *goquery.Selection) string {
	src := firstAttr(video, "src", "data-src")
	if media.IsBlobURL(src) {
		return in.firstValid(attrs(video, blobRecoveryAttrs...)...)
	}
	return src
}
