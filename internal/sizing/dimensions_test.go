package sizing

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/mynest/mediasniff/internal/model"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode bmp: %v", err)
	}
	return buf.Bytes()
}

// losslessWebPHeader builds a RIFF container holding only a VP8L header,
// which is all DecodeConfig reads.
func losslessWebPHeader(w, h int) []byte {
	bits := uint32(w-1) | uint32(h-1)<<14
	payload := []byte{0x2f, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(payload[1:], bits)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(payload)+1))
	buf.WriteString("WEBPVP8L")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	buf.WriteByte(0)
	return buf.Bytes()
}

func TestImageDimensionsFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  []byte
		wantW int
		wantH int
	}{
		{name: "png", data: encodePNG(t, 40, 30), wantW: 40, wantH: 30},
		{name: "webp", data: losslessWebPHeader(64, 48), wantW: 64, wantH: 48},
		{name: "bmp", data: encodeBMP(t, 12, 7), wantW: 12, wantH: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, h, err := imageDimensions(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestDimensionProber(t *testing.T) {
	t.Parallel()

	pngData := encodePNG(t, 40, 30)
	webpData := losslessWebPHeader(64, 48)

	newServer := func(t *testing.T, lastRange *atomic.Value) *httptest.Server {
		t.Helper()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if lastRange != nil {
				lastRange.Store(r.Header.Get("Range"))
			}
			switch r.URL.Path {
			case "/a.png":
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(pngData)
			case "/b.webp":
				w.Header().Set("Content-Type", "image/webp")
				_, _ = w.Write(webpData)
			case "/garbage.jpg":
				_, _ = w.Write([]byte("not an image"))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("reads header dimensions with a range request", func(t *testing.T) {
		t.Parallel()

		var lastRange atomic.Value
		srv := newServer(t, &lastRange)

		w, h, err := NewDimensionProber(srv.Client(), WithMaxBytes(1024)).Dimensions(context.Background(), srv.URL+"/a.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w != 40 || h != 30 {
			t.Errorf("expected 40x30, got %dx%d", w, h)
		}
		if got, _ := lastRange.Load().(string); got != "bytes=0-1023" {
			t.Errorf("unexpected range header %q", got)
		}
	})

	t.Run("reads webp dimensions", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, nil)
		w, h, err := NewDimensionProber(srv.Client()).Dimensions(context.Background(), srv.URL+"/b.webp")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w != 64 || h != 48 {
			t.Errorf("expected 64x48, got %dx%d", w, h)
		}
	})

	t.Run("rejected download", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, nil)
		_, _, err := NewDimensionProber(srv.Client()).Dimensions(context.Background(), srv.URL+"/missing.png")
		if !errors.Is(err, ErrImageUnavailable) {
			t.Errorf("expected ErrImageUnavailable, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, nil)
		_, _, err := NewDimensionProber(srv.Client()).Dimensions(context.Background(), srv.URL+"/garbage.jpg")
		if !errors.Is(err, ErrUnknownImageFormat) {
			t.Errorf("expected ErrUnknownImageFormat, got %v", err)
		}
	})

	t.Run("probe only fills missing image dimensions", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, nil)
		img := model.NewMediaResource(srv.URL+"/a.png", model.MediaTypeImage)
		declared := model.NewMediaResource(srv.URL+"/a.png?declared", model.MediaTypeImage)
		declared.Width, declared.Height = 5, 5
		video := model.NewMediaResource(srv.URL+"/a.png?video", model.MediaTypeVideo)
		broken := model.NewMediaResource(srv.URL+"/garbage.jpg", model.MediaTypeImage)

		NewDimensionProber(srv.Client()).Probe(context.Background(), []*model.MediaResource{img, declared, video, broken, nil})

		if img.Width != 40 || img.Height != 30 {
			t.Errorf("expected 40x30, got %dx%d", img.Width, img.Height)
		}
		if declared.Width != 5 || declared.Height != 5 {
			t.Errorf("expected declared dimensions to be kept, got %dx%d", declared.Width, declared.Height)
		}
		if video.HasDimensions() {
			t.Error("expected video to be skipped")
		}
		if broken.HasDimensions() {
			t.Error("expected broken image to stay unknown")
		}
	})
}

func TestExifDimensionsWithoutExif(t *testing.T) {
	t.Parallel()

	if _, _, ok := exifDimensions([]byte("plain bytes")); ok {
		t.Error("expected no EXIF dimensions")
	}
	if _, ok := exifInt("text"); ok {
		t.Error("expected non-numeric tag to be rejected")
	}
	if v, ok := exifInt([]uint32{640}); !ok || v != 640 {
		t.Errorf("expected 640, got %d", v)
	}
}
