package sniffer

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
)

// stubStrategy is a test helper that implements the Strategy interface.
type stubStrategy struct {
	name     string
	priority int
	detect   func(ctx context.Context, in *DetectInput) ([]*model.MediaResource, error)
	calls    int
}

func (s *stubStrategy) Name() string  { return s.name }
func (s *stubStrategy) Priority() int { return s.priority }

func (s *stubStrategy) Detect(ctx context.Context, in *DetectInput) ([]*model.MediaResource, error) {
	s.calls++
	if s.detect == nil {
		return nil, nil
	}
	return s.detect(ctx, in)
}

// claiming returns a detect func that claims each URL with the given type.
func claiming(mediaType model.MediaType, urls ...string) func(context.Context, *DetectInput) ([]*model.MediaResource, error) {
	return func(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
		var found []*model.MediaResource
		for _, u := range urls {
			if in.Seen.Add(u) {
				found = append(found, model.NewMediaResource(u, mediaType))
			}
		}
		return found, nil
	}
}

func mustParse(t *testing.T, html string) *page.Document {
	t.Helper()

	doc, err := page.ParseString(html, "https://example.com/")
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	return doc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default strategies run in priority order", func(t *testing.T) {
		t.Parallel()

		s := New()
		want := []string{
			"ImageTag", "BackgroundImage", "VideoTag", "AudioTag",
			"PerformanceAPI", "CustomAttributes", "ScriptExtraction",
		}
		got := s.StrategyNames()
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("strategy %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("custom strategies are sorted stably", func(t *testing.T) {
		t.Parallel()

		s := New(WithStrategies(
			&stubStrategy{name: "late", priority: 9},
			&stubStrategy{name: "early-a", priority: 1},
			&stubStrategy{name: "early-b", priority: 1},
		))
		got := s.StrategyNames()
		want := []string{"early-a", "early-b", "late"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("strategy %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})
}

func TestSnifferSniff(t *testing.T) {
	t.Parallel()

	t.Run("duplicate image tags yield one resource", func(t *testing.T) {
		t.Parallel()

		got := New().Sniff(context.Background(), mustParse(t, `<img src="https://x/a.jpg"><img src="https://x/a.jpg">`))
		if len(got) != 1 {
			t.Fatalf("expected 1 resource, got %d", len(got))
		}
		if got[0].URL != "https://x/a.jpg" || got[0].Type != model.MediaTypeImage {
			t.Errorf("unexpected resource %+v", got[0])
		}
	})

	t.Run("video poster becomes thumbnail", func(t *testing.T) {
		t.Parallel()

		got := New().Sniff(context.Background(), mustParse(t, `<video src="https://x/v.mp4" poster="https://x/p.jpg"></video>`))
		if len(got) != 1 {
			t.Fatalf("expected 1 resource, got %d: %v", len(got), urlsOf(got))
		}
		if got[0].Type != model.MediaTypeVideo || got[0].Thumbnail != "https://x/p.jpg" {
			t.Errorf("unexpected resource %+v", got[0])
		}
	})

	t.Run("script play address without video tag", func(t *testing.T) {
		t.Parallel()

		got := New().Sniff(context.Background(), mustParse(t, `<script>var data = { playAddr: "https://cdn/clip.mp4" };</script>`))
		if len(got) != 1 {
			t.Fatalf("expected 1 resource, got %d: %v", len(got), urlsOf(got))
		}
		if got[0].URL != "https://cdn/clip.mp4" || got[0].Type != model.MediaTypeVideo {
			t.Errorf("unexpected resource %+v", got[0])
		}
	})

	t.Run("first strategy wins a shared URL", func(t *testing.T) {
		t.Parallel()

		s := New(WithStrategies(
			&stubStrategy{name: "second", priority: 2, detect: claiming(model.MediaTypeImage, "https://x/shared")},
			&stubStrategy{name: "first", priority: 1, detect: claiming(model.MediaTypeVideo, "https://x/shared")},
		))

		got := s.Sniff(context.Background(), mustParse(t, ``))
		if len(got) != 1 {
			t.Fatalf("expected 1 resource, got %d", len(got))
		}
		if got[0].Type != model.MediaTypeVideo {
			t.Errorf("expected type of first strategy, got %q", got[0].Type)
		}
	})

	t.Run("concatenates in strategy order without sorting", func(t *testing.T) {
		t.Parallel()

		s := New(WithStrategies(
			&stubStrategy{name: "a", priority: 1, detect: claiming(model.MediaTypeImage, "https://x/1", "https://x/2")},
			&stubStrategy{name: "b", priority: 2, detect: claiming(model.MediaTypeAudio, "https://x/3")},
		))

		assertURLs(t, s.Sniff(context.Background(), mustParse(t, ``)), "https://x/1", "https://x/2", "https://x/3")
	})
}

func TestSnifferGracefulDegradation(t *testing.T) {
	t.Parallel()

	t.Run("panicking strategy contributes nothing", func(t *testing.T) {
		t.Parallel()

		after := &stubStrategy{name: "after", priority: 3, detect: claiming(model.MediaTypeImage, "https://x/claimed-by-panic")}
		s := New(WithStrategies(
			&stubStrategy{name: "before", priority: 1, detect: claiming(model.MediaTypeImage, "https://x/ok")},
			&stubStrategy{name: "panics", priority: 2, detect: func(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
				in.Seen.Add("https://x/claimed-by-panic")
				panic("boom")
			}},
			after,
		))

		got := s.Sniff(context.Background(), mustParse(t, ``))
		assertURLs(t, got, "https://x/ok", "https://x/claimed-by-panic")
		if after.calls != 1 {
			t.Errorf("expected later strategy to run once, got %d", after.calls)
		}
	})

	t.Run("erroring strategy contributes nothing", func(t *testing.T) {
		t.Parallel()

		s := New(WithStrategies(
			&stubStrategy{name: "fails", priority: 1, detect: func(ctx context.Context, in *DetectInput) ([]*model.MediaResource, error) {
				found, _ := claiming(model.MediaTypeVideo, "https://x/v.mp4")(ctx, in)
				return found, errors.New("scan failed")
			}},
			&stubStrategy{name: "next", priority: 2, detect: claiming(model.MediaTypeImage, "https://x/v.mp4")},
		))

		got := s.Sniff(context.Background(), mustParse(t, ``))
		if len(got) != 1 || got[0].Type != model.MediaTypeImage {
			t.Errorf("expected URL to be released to the next strategy, got %+v", got)
		}
	})

	t.Run("unclaimed and invalid resources are dropped", func(t *testing.T) {
		t.Parallel()

		s := New(WithStrategies(
			&stubStrategy{name: "sloppy", priority: 1, detect: func(_ context.Context, in *DetectInput) ([]*model.MediaResource, error) {
				in.Seen.Add("https://x/typed")
				return []*model.MediaResource{
					nil,
					model.NewMediaResource("https://x/unclaimed", model.MediaTypeImage),
					model.NewMediaResource("https://x/typed", model.MediaTypeUnknown),
				}, nil
			}},
		))

		if got := s.Sniff(context.Background(), mustParse(t, ``)); len(got) != 0 {
			t.Errorf("expected nothing, got %v", urlsOf(got))
		}
	})

	t.Run("cancelled context stops before the next strategy", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		second := &stubStrategy{name: "second", priority: 2}
		s := New(WithStrategies(
			&stubStrategy{name: "first", priority: 1, detect: func(c context.Context, in *DetectInput) ([]*model.MediaResource, error) {
				cancel()
				return claiming(model.MediaTypeImage, "https://x/a.jpg")(c, in)
			}},
			second,
		))

		got := s.Sniff(ctx, mustParse(t, ``))
		assertURLs(t, got, "https://x/a.jpg")
		if second.calls != 0 {
			t.Error("expected second strategy to be skipped")
		}
	})
}

func TestSnifferDedupInvariant(t *testing.T) {
	t.Parallel()

	const html = `
		<style>.bg { background-image: url(https://x/a.jpg) }</style>
		<img src="https://x/a.jpg">
		<div class="bg" data-video-url="https://x/v.mp4"></div>
		<video src="https://x/v.mp4"><source src="https://x/v.webm"></video>
		<audio><source src="https://x/a.mp3"></audio>
		<script>var cfg = {"videoUrl": "https://x/v.mp4", "backup": "https://x/v2.m3u8"};</script>`

	setOf := func(resources []*model.MediaResource) []string {
		urls := urlsOf(resources)
		sort.Strings(urls)
		return urls
	}

	forward := New().Sniff(context.Background(), mustParse(t, html))

	reversed := DefaultStrategies()
	for i := range reversed {
		reversed[i] = &stubStrategy{
			name:     reversed[i].Name(),
			priority: len(reversed) - i,
			detect:   reversed[i].Detect,
		}
	}
	backward := New(WithStrategies(reversed...)).Sniff(context.Background(), mustParse(t, html))

	a, b := setOf(forward), setOf(backward)
	if len(a) != len(b) {
		t.Fatalf("expected equal URL sets, got %v and %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("URL sets differ: %v vs %v", a, b)
			break
		}
		if i > 0 && a[i] == a[i-1] {
			t.Errorf("duplicate URL %q", a[i])
		}
	}

	again := setOf(New().Sniff(context.Background(), mustParse(t, html)))
	for i := range a {
		if a[i] != again[i] {
			t.Errorf("repeated sniff differs: %v vs %v", a, again)
			break
		}
	}
}
