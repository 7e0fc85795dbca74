package media

import (
	"regexp"
	"strings"

	"github.com/mynest/mediasniff/internal/model"
)

var (
	videoExtPattern = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov|avi|wmv|flv|mkv|m4v|3gp|ts)(\?|$)`)
	audioExtPattern = regexp.MustCompile(`(?i)\.(mp3|wav|ogg|aac|m4a|flac|wma)(\?|$)`)
	imageExtPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|bmp|svg|ico)(\?|$)`)
	manifestPattern = regexp.MustCompile(`(?i)\.(m3u8|mpd)`)
)

// patternGroup is one media type with the patterns that select it.
type patternGroup struct {
	mediaType model.MediaType
	patterns  []*regexp.Regexp
	keyword   string
}

func (g patternGroup) match(lowerURL string) bool {
	for _, re := range g.patterns {
		if re.MatchString(lowerURL) {
			return true
		}
	}
	return g.keyword != "" && strings.Contains(lowerURL, g.keyword)
}

// Classifier maps URLs to media types.
// A Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	groups    []patternGroup
	platforms []*regexp.Regexp
}

// NewClassifier builds a classifier using the given platform host list.
// A nil or empty list disables platform heuristics.
func NewClassifier(platforms []Platform) (*Classifier, error) {
	hosts, err := compilePlatforms(platforms)
	if err != nil {
		return nil, err
	}

	videoPatterns := append([]*regexp.Regexp{videoExtPattern, manifestPattern}, hosts...)

	return &Classifier{
		// Order matters: the first matching group wins.
		groups: []patternGroup{
			{mediaType: model.MediaTypeVideo, patterns: videoPatterns, keyword: "video"},
			{mediaType: model.MediaTypeAudio, patterns: []*regexp.Regexp{audioExtPattern}, keyword: "audio"},
			{mediaType: model.MediaTypeImage, patterns: []*regexp.Regexp{imageExtPattern}, keyword: "image"},
		},
		platforms: hosts,
	}, nil
}

// DefaultClassifier returns a classifier using DefaultPlatforms.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultPlatforms)
	if err != nil {
		panic(err) // DefaultPlatforms is a constant list
	}
	return c
}

// HintType maps a loader hint to a media type.
// Hints are browser initiator types ("img", "video", "audio") or
// generic type names.
func HintType(hint string) model.MediaType {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "video":
		return model.MediaTypeVideo
	case "audio":
		return model.MediaTypeAudio
	case "img", "image", "imageset":
		return model.MediaTypeImage
	default:
		return model.MediaTypeUnknown
	}
}

// Classify returns the media type of rawURL.
// A recognized hint takes precedence over any URL pattern.
func (c *Classifier) Classify(rawURL, hint string) (model.MediaType, bool) {
	if t := HintType(hint); t != model.MediaTypeUnknown {
		return t, true
	}

	lower := strings.ToLower(rawURL)
	for _, g := range c.groups {
		if g.match(lower) {
			return g.mediaType, true
		}
	}
	return model.MediaTypeUnknown, false
}

// IsVideoURL is the narrower video check used for text-extracted URLs.
// Unlike Classify it ignores the bare "video" keyword.
func (c *Classifier) IsVideoURL(rawURL string) bool {
	if videoExtPattern.MatchString(rawURL) || manifestPattern.MatchString(rawURL) {
		return true
	}
	for _, re := range c.platforms {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// PlatformPatterns returns the compiled platform host patterns.
func (c *Classifier) PlatformPatterns() []*regexp.Regexp {
	return c.platforms
}
