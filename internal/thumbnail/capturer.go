package thumbnail

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mynest/mediasniff/internal/model"
)

const (
	// DefaultTimeout bounds one capture attempt.
	DefaultTimeout = 2 * time.Second

	// DefaultLimit is the number of videos considered per sniff.
	DefaultLimit = 3
)

// Capturer turns video URLs into JPEG data URIs.
type Capturer struct {
	grabber FrameGrabber
	timeout time.Duration
	limit   int
	logger  *slog.Logger
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithGrabber sets the frame grabber.
func WithGrabber(g FrameGrabber) Option {
	return func(c *Capturer) {
		c.grabber = g
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Capturer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimit sets how many videos Backfill attempts.
func WithLimit(n int) Option {
	return func(c *Capturer) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capturer) {
		c.logger = logger
	}
}

// NewCapturer creates a Capturer. Without WithGrabber it uses ffmpeg.
func NewCapturer(opts ...Option) *Capturer {
	c := &Capturer{
		timeout: DefaultTimeout,
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.grabber == nil {
		c.grabber = NewFFmpegGrabber()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Capture grabs one frame of videoURL and returns it as a data URI.
// It gives up after the configured timeout.
func (c *Capturer) Capture(ctx context.Context, videoURL string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		frame []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		frame, err := c.grabber.Grab(ctx, videoURL)
		done <- result{frame, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			c.logger.Debug("thumbnail capture failed", "url", videoURL, "error", res.err)
			return "", false
		}
		if len(res.frame) == 0 {
			c.logger.Debug("thumbnail capture failed", "url", videoURL, "error", ErrEmptyFrame)
			return "", false
		}
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(res.frame), true
	case <-ctx.Done():
		c.logger.Debug("thumbnail capture timed out", "url", videoURL)
		return "", false
	}
}

// Candidates returns the first videos without a thumbnail, at most the
// configured limit. resources should already be sorted by size.
func (c *Capturer) Candidates(resources []*model.MediaResource) []*model.MediaResource {
	picked := make([]*model.MediaResource, 0, c.limit)
	for _, r := range resources {
		if len(picked) == c.limit {
			break
		}
		if r != nil && r.Type == model.MediaTypeVideo && r.Thumbnail == "" {
			picked = append(picked, r)
		}
	}
	return picked
}

// Backfill captures thumbnails for the Candidates of resources and calls
// publish once per success. Attempts run independently; publish is never
// called concurrently. resources are not modified. Backfill returns the
// number of published updates once every attempt has finished.
func (c *Capturer) Backfill(ctx context.Context, sniffID string, resources []*model.MediaResource, publish func(model.ThumbnailUpdate)) int {
	candidates := c.Candidates(resources)
	if len(candidates) == 0 {
		return 0
	}

	var (
		mu        sync.Mutex
		published int
	)
	g := new(errgroup.Group)
	for _, r := range candidates {
		videoURL := r.URL
		g.Go(func() error {
			thumb, ok := c.Capture(ctx, videoURL)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			publish(model.ThumbnailUpdate{SniffID: sniffID, URL: videoURL, Thumbnail: thumb})
			published++
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // attempts never return errors

	return published
}
