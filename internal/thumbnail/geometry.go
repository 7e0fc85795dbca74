package thumbnail

import (
	"math"
	"time"
)

// Default frame box and seek position.
const (
	DefaultMaxWidth  = 320
	DefaultMaxHeight = 180
	DefaultSeek      = time.Second
)

// FitWithin scales width x height to fit inside maxWidth x maxHeight,
// keeping the aspect ratio. Unknown source dimensions yield the box itself.
// Both results are even, as required by most encoders, and at least 2.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return even(maxWidth), even(maxHeight)
	}

	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return even(w), even(h)
}

func even(n int) int {
	n -= n % 2
	if n < 2 {
		return 2
	}
	return n
}

// SeekOffset returns min(1s, 10% of duration). An unknown duration seeks
// to the start.
func SeekOffset(duration time.Duration) time.Duration {
	if duration <= 0 {
		return 0
	}
	return min(DefaultSeek, duration/10)
}
