package sizing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"net/http"

	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/errgroup"

	"github.com/mynest/mediasniff/internal/model"
)

// DefaultDimensionBytes is how much of an image is downloaded to read its
// dimensions. Headers and EXIF blocks sit at the front of the file.
const DefaultDimensionBytes = 512 * 1024

// DimensionProber reads the pixel size of images whose markup did not
// declare one.
type DimensionProber struct {
	client      *http.Client
	maxBytes    int64
	concurrency int
	logger      *slog.Logger
}

// DimensionOption configures a DimensionProber.
type DimensionOption func(*DimensionProber)

// WithMaxBytes sets how many leading bytes are fetched per image.
func WithMaxBytes(n int64) DimensionOption {
	return func(p *DimensionProber) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithDimensionConcurrency limits concurrent image downloads.
func WithDimensionConcurrency(n int) DimensionOption {
	return func(p *DimensionProber) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithDimensionLogger sets a custom logger.
func WithDimensionLogger(logger *slog.Logger) DimensionOption {
	return func(p *DimensionProber) {
		p.logger = logger
	}
}

// NewDimensionProber creates a prober that downloads through client.
func NewDimensionProber(client *http.Client, opts ...DimensionOption) *DimensionProber {
	if client == nil {
		client = http.DefaultClient
	}
	p := &DimensionProber{
		client:      client,
		maxBytes:    DefaultDimensionBytes,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Probe fills in width and height of image resources that lack them.
// Failures leave the resource untouched.
func (p *DimensionProber) Probe(ctx context.Context, resources []*model.MediaResource) {
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for _, res := range resources {
		if res == nil || res.Type != model.MediaTypeImage || res.HasDimensions() {
			continue
		}
		g.Go(func() error {
			w, h, err := p.Dimensions(ctx, res.URL)
			if err != nil {
				p.logger.Debug("dimension probe failed", "url", res.URL, "error", err)
				return nil
			}
			res.Width, res.Height = w, h
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // probes never return errors
}

// Dimensions downloads the head of the image at rawURL and returns its
// pixel size.
func (p *DimensionProber) Dimensions(ctx context.Context, rawURL string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", p.maxBytes-1))

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, 0, fmt.Errorf("%w: status %d", ErrImageUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image: %w", err)
	}

	return imageDimensions(data)
}

// imageDimensions reads the size from EXIF when present, otherwise from
// the image header.
func imageDimensions(data []byte) (int, int, error) {
	if w, h, ok := exifDimensions(data); ok {
		return w, h, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUnknownImageFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, ErrUnknownImageFormat
	}
	return cfg.Width, cfg.Height, nil
}

// exifDimensions looks for PixelXDimension/PixelYDimension, falling back
// to ImageWidth/ImageLength.
func exifDimensions(data []byte) (int, int, bool) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 0, 0, false
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0, 0, false
	}

	tags := make(map[string]int, 4)
	for _, entry := range entries {
		switch entry.TagName {
		case "PixelXDimension", "PixelYDimension", "ImageWidth", "ImageLength":
			if v, ok := exifInt(entry.Value); ok {
				if _, dup := tags[entry.TagName]; !dup {
					tags[entry.TagName] = v
				}
			}
		}
	}

	if w, h := tags["PixelXDimension"], tags["PixelYDimension"]; w > 0 && h > 0 {
		return w, h, true
	}
	if w, h := tags["ImageWidth"], tags["ImageLength"]; w > 0 && h > 0 {
		return w, h, true
	}
	return 0, 0, false
}

// exifInt extracts the first value of a SHORT or LONG tag.
func exifInt(v any) (int, bool) {
	switch n := v.(type) {
	case []uint16:
		if len(n) > 0 {
			return int(n[0]), true
		}
	case []uint32:
		if len(n) > 0 {
			return int(n[0]), true
		}
	}
	return 0, false
}
