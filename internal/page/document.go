package page

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mynest/mediasniff/internal/media"
)

// Document is a parsed page ready for media detection.
// It is read-only after construction, except for AddStylesheet and
// SetResourceLog which must be called before detection starts.
type Document struct {
	dom     *goquery.Document
	pageURL string
	base    *url.URL

	// sheets holds external stylesheets in link order.
	sheets []*StyleSheet

	// log is the network telemetry for the page. Never nil.
	log *ResourceLog
}

// Parse reads HTML from r and builds a Document.
// pageURL may be empty for detached snapshots, in which case only
// absolute resource URLs can be resolved.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return newDocument(dom, pageURL)
}

// ParseString is a convenience wrapper around Parse.
func ParseString(html, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(html), pageURL)
}

func newDocument(dom *goquery.Document, pageURL string) (*Document, error) {
	d := &Document{
		dom:     dom,
		pageURL: pageURL,
		log:     NewResourceLog(nil),
	}

	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPageURL, pageURL)
		}
		d.base = u
	}

	// Only the first <base href> counts, as in browsers.
	if href, ok := dom.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if d.base != nil {
				d.base = d.base.ResolveReference(ref)
			} else if ref.IsAbs() {
				d.base = ref
			}
		}
	}

	return d, nil
}

// URL returns the page URL the document was loaded from.
func (d *Document) URL() string {
	return d.pageURL
}

// Base returns the URL relative references resolve against. It may be nil.
func (d *Document) Base() *url.URL {
	return d.base
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.dom.Find("title").First().Text())
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.dom.Find(selector)
}

// Resolve validates candidate and resolves it against the document base.
func (d *Document) Resolve(candidate string) (string, bool) {
	return media.ResolveResourceURL(candidate, d.base)
}

// ResourceLog returns the network telemetry attached to the page.
func (d *Document) ResourceLog() *ResourceLog {
	return d.log
}

// SetResourceLog replaces the network telemetry. A nil log clears it.
func (d *Document) SetResourceLog(log *ResourceLog) {
	if log == nil {
		log = NewResourceLog(nil)
	}
	d.log = log
}

// AddStylesheet attaches an external stylesheet fetched from sheetURL.
// Relative url() references inside it resolve against sheetURL.
func (d *Document) AddStylesheet(css string, sheetURL *url.URL) {
	d.sheets = append(d.sheets, ParseStyleSheet(css, sheetURL))
}

// Scripts returns the non-empty text of every <script> element in document order.
// JSON data blocks are included; players often embed their config that way.
func (d *Document) Scripts() []string {
	var scripts []string
	d.dom.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			scripts = append(scripts, text)
		}
	})
	return scripts
}

// LinkedStylesheets returns the resolved URLs of <link rel="stylesheet"> elements.
func (d *Document) LinkedStylesheets() []string {
	var hrefs []string
	d.dom.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		if !strings.Contains(rel, "stylesheet") {
			return
		}
		if u, ok := d.Resolve(s.AttrOr("href", "")); ok {
			hrefs = append(hrefs, u)
		}
	})
	return hrefs
}
