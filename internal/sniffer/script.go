package sniffer

import (
	"context"
	"regexp"
	"strings"

	"github.com/mynest/mediasniff/internal/media"
	"github.com/mynest/mediasniff/internal/model"
)

// DefaultMaxScriptSize bounds how much of each script is scanned.
const DefaultMaxScriptSize = 4 * 1024 * 1024

// urlChars matches the characters of a URL embedded in script text.
const urlChars = `[^"'\s<>\\]`

// scriptURLPatterns are tried in order against every script.
// The URL is always the first submatch. All patterns are RE2, so matching
// time is linear in the script length whatever the input.
var scriptURLPatterns = []*regexp.Regexp{
	// Direct file URLs.
	regexp.MustCompile(`(?i)(https?://` + urlChars + `+?\.(?:mp4|m3u8|flv)` + urlChars + `*)`),
	// Common player config keys.
	regexp.MustCompile(`(?i)video_?url["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)playAddr["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)play_addr["']?\s*[:=]\s*\{[^}]{0,1000}?["']url_list["']?\s*:\s*\[\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)\bsrc["']?\s*[:=]\s*["'](https?://[^"']+?\.(?:mp4|m3u8|flv)[^"']*)["']`),
}

// scriptUnescaper decodes the escapes JSON serializers put into URLs.
var scriptUnescaper = strings.NewReplacer(
	`\/`, `/`,
	`\u002F`, `/`,
	`\u002f`, `/`,
	`\u0026`, `&`,
	`\u003D`, `=`,
	`\u003d`, `=`,
)

// ScriptExtractionStrategy finds video URLs embedded in inline scripts,
// such as player configs and server-rendered state.
type ScriptExtractionStrategy struct {
	maxScriptSize int
}

// ScriptOption configures a ScriptExtractionStrategy.
type ScriptOption func(*ScriptExtractionStrategy)

// WithMaxScriptSize sets the number of bytes scanned per script.
func WithMaxScriptSize(n int) ScriptOption {
	return func(s *ScriptExtractionStrategy) {
		if n > 0 {
			s.maxScriptSize = n
		}
	}
}

// NewScriptExtractionStrategy creates the script extraction strategy.
func NewScriptExtractionStrategy(opts ...ScriptOption) *ScriptExtractionStrategy {
	s := &ScriptExtractionStrategy{maxScriptSize: DefaultMaxScriptSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the strategy name.
func (s *ScriptExtractionStrategy) Name() string {
	return "ScriptExtraction"
}

// Priority returns the strategy priority.
func (s *ScriptExtractionStrategy) Priority() int {
	return PriorityScriptExtraction
}

// Detect implements Strategy.
func (s *ScriptExtractionStrategy) Detect(ctx context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	var found []*model.MediaResource

	patterns := append(append([]*regexp.Regexp(nil), scriptURLPatterns...), platformURLPatterns(in.Classifier)...)

	for _, script := range in.Page.Scripts() {
		if err := ctx.Err(); err != nil {
			return found, nil
		}
		if len(script) > s.maxScriptSize {
			script = script[:s.maxScriptSize]
		}
		text := scriptUnescaper.Replace(script)

		for _, re := range patterns {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				candidate := strings.Trim(m[1], `"'`)
				u, ok := in.Page.Resolve(candidate)
				if !ok || in.Seen.Has(u) || !in.Classifier.IsVideoURL(u) {
					continue
				}
				in.Seen.Add(u)
				found = append(found, model.NewMediaResource(u, model.MediaTypeVideo))
			}
		}
	}

	return found, nil
}

// platformURLPatterns builds URL patterns for the classifier's platform hosts.
func platformURLPatterns(c *media.Classifier) []*regexp.Regexp {
	hosts := c.PlatformPatterns()
	patterns := make([]*regexp.Regexp, 0, len(hosts))
	for _, h := range hosts {
		re, err := regexp.Compile(`(https?://` + urlChars + `*?(?:` + h.String() + `)` + urlChars + `*)`)
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}
