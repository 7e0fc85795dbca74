package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultMaxBodySize limits how much of a page or stylesheet is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxStylesheets limits how many linked stylesheets are fetched per page.
	DefaultMaxStylesheets = 8
)

// Fetcher loads pages over HTTP.
type Fetcher struct {
	client         *http.Client
	maxBodySize    int64
	maxStylesheets int
	logger         *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize sets the maximum number of bytes read per response.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithMaxStylesheets sets how many linked stylesheets are fetched.
// Zero disables stylesheet fetching.
func WithMaxStylesheets(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxStylesheets = n
		}
	}
}

// WithFetcherLogger sets a custom logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher that issues requests with client.
// The client carries transport concerns such as proxies and headers.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:         client,
		maxBodySize:    DefaultMaxBodySize,
		maxStylesheets: DefaultMaxStylesheets,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads pageURL and parses it into a Document.
// Any failure to obtain an HTML document wraps ErrPageUnreachable.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %w: %s", ErrPageUnreachable, ErrInvalidPageURL, pageURL)
	}

	body, finalURL, err := f.get(ctx, pageURL, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}

	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}
	doc, err := newDocument(dom, finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}

	f.fetchStylesheets(ctx, doc)
	return doc, nil
}

// fetchStylesheets attaches linked stylesheets. Failures are logged and skipped.
func (f *Fetcher) fetchStylesheets(ctx context.Context, doc *Document) {
	hrefs := doc.LinkedStylesheets()
	if len(hrefs) > f.maxStylesheets {
		hrefs = hrefs[:f.maxStylesheets]
	}
	for _, href := range hrefs {
		body, finalURL, err := f.get(ctx, href, false)
		if err != nil {
			f.logger.Debug("stylesheet fetch failed", "url", href, "error", err)
			continue
		}
		sheetURL, err := url.Parse(finalURL)
		if err != nil {
			continue
		}
		doc.AddStylesheet(string(body), sheetURL)
	}
}

// get performs a GET and returns the body and the URL after redirects.
func (f *Fetcher) get(ctx context.Context, target string, requireHTML bool) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	if requireHTML {
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if requireHTML && !isHTMLContentType(resp.Header.Get("Content-Type")) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, "", err
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return body, finalURL, nil
}

// isHTMLContentType accepts HTML, XHTML and a missing header.
func isHTMLContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
