package sniffer

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/model"
)

// AudioTagStrategy scans <audio> elements and their <source> children.
type AudioTagStrategy struct{}

// NewAudioTagStrategy creates the audio tag strategy.
func NewAudioTagStrategy() *AudioTagStrategy {
	return &AudioTagStrategy{}
}

// Name returns the strategy name.
func (s *AudioTagStrategy) Name() string {
	return "AudioTag"
}

// Priority returns the strategy priority.
func (s *AudioTagStrategy) Priority() int {
	return PriorityAudioTag
}

// Detect implements Strategy.
func (s *AudioTagStrategy) Detect(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	in.Page.Find("audio").Each(func(_ int, audio *goquery.Selection) {
		alt := firstAttr(audio, "title")

		if u, ok := in.claim(in.firstValid(attrs(audio, "src", "data-src")...)); ok {
			r := model.NewMediaResource(u, model.MediaTypeAudio)
			r.Alt = alt
			found = append(found, r)
		}

		audio.Find("source").Each(func(_ int, source *goquery.Selection) {
			u, ok := in.claim(in.firstValid(attrs(source, "src", "data-src")...))
			if !ok {
				return
			}
			r := model.NewMediaResource(u, model.MediaTypeAudio)
			r.Alt = alt
			found = append(found, r)
		})
	})

	return found, nil
}
