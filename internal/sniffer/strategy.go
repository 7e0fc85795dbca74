package sniffer

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/media"
	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
)

// Strategy priorities. Lower values run first.
const (
	PriorityImageTag = iota + 1
	PriorityBackgroundImage
	PriorityVideoTag
	PriorityAudioTag
	PriorityPerformanceAPI
	PriorityCustomAttributes
	PriorityScriptExtraction
)

// Strategy detects media resources from one source on the page.
type Strategy interface {
	// Name returns the strategy's name for logging.
	Name() string

	// Priority orders strategies; lower values run earlier.
	Priority() int

	// Detect returns the resources whose URLs it newly claimed in in.Seen.
	// It must not return a URL it did not claim.
	Detect(ctx context.Context, in *DetectInput) ([]*model.MediaResource, error)
}

// DetectInput is everything a strategy may read or update during detection.
type DetectInput struct {
	// Page is the document being sniffed.
	Page *page.Document

	// Seen is shared by all strategies of one sniff.
	Seen *SeenSet

	// Classifier maps URLs to media types.
	Classifier *media.Classifier
}

// claim resolves candidate against the page and claims it.
// It returns the resolved URL only if it is valid and was not seen before.
func (in *DetectInput) claim(candidate string) (string, bool) {
	u, ok := in.Page.Resolve(candidate)
	if !ok {
		return "", false
	}
	if !in.Seen.Add(u) {
		return "", false
	}
	return u, true
}

// firstValid returns the first candidate that resolves to a usable URL.
// Candidates are not claimed.
func (in *DetectInput) firstValid(candidates ...string) string {
	for _, c := range candidates {
		if _, ok := in.Page.Resolve(c); ok {
			return c
		}
	}
	return ""
}

// attrs returns the values of the named attributes in order.
func attrs(s *goquery.Selection, names ...string) []string {
	values := make([]string, 0, len(names))
	for _, n := range names {
		if v, ok := s.Attr(n); ok {
			values = append(values, v)
		}
	}
	return values
}

// firstAttr returns the first non-blank value of the named attributes.
func firstAttr(s *goquery.Selection, names ...string) string {
	for _, v := range attrs(s, names...) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// intAttr parses a dimension attribute such as width="640" or "640px".
// Unparseable values yield 0.
func intAttr(s *goquery.Selection, name string) int {
	v := strings.TrimSuffix(strings.TrimSpace(s.AttrOr(name, "")), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
