package mynest

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/mynest/mediasniff/internal/media"
)

// urlPattern finds http(s) URLs in free text.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)

// trailingPunct is stripped from matches, since URLs in prose are often
// followed by punctuation.
const trailingPunct = ".,;:!?)]}>"

// ExtractURLs returns the valid http(s) URLs in text, in order of first
// appearance and without duplicates.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunct)
		if media.IsValidResourceURL(m, nil) {
			urls = append(urls, m)
		}
	}
	return lo.Uniq(urls)
}
