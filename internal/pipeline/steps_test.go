package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/mynest/mediasniff/internal/model"
	"github.com/mynest/mediasniff/internal/page"
	"github.com/mynest/mediasniff/internal/sizing"
	"github.com/mynest/mediasniff/internal/sniffer"
	"github.com/mynest/mediasniff/internal/thumbnail"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Clips</title></head>
<body>
  <img src="/small.jpg" alt="small">
  <video src="/big.mp4"></video>
</body></html>`

// newMediaServer serves testPage and answers HEAD probes for its media.
func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(testPage))
		case "/small.jpg":
			w.Header().Set("Content-Length", "1024")
			w.WriteHeader(http.StatusOK)
		case "/big.mp4":
			w.Header().Set("Content-Length", "204800")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type fakeGrabber struct{}

func (fakeGrabber) Grab(_ context.Context, _ string) ([]byte, error) {
	return []byte{0xff, 0xd8, 0xff, 0xd9}, nil
}

func TestStepNames(t *testing.T) {
	t.Parallel()

	steps := []Step{
		NewFetchStep(page.NewFetcher(nil)),
		NewSnapshotStep("", nil),
		NewDetectStep(sniffer.New()),
		NewDimensionStep(sizing.NewDimensionProber(nil)),
		NewSizeStep(sizing.NewResolver(nil)),
		NewThumbnailStep(thumbnail.NewCapturer(thumbnail.WithGrabber(fakeGrabber{})), nil),
	}
	want := []string{StepFetch, StepSnapshot, StepDetect, StepDimensions, StepSize, StepThumbnails}

	for i, s := range steps {
		if s.Name() != want[i] {
			t.Errorf("step %d: Name() = %q, want %q", i, s.Name(), want[i])
		}
	}
}

func TestFetchStepDo(t *testing.T) {
	t.Parallel()

	t.Run("loads document and title", func(t *testing.T) {
		t.Parallel()

		server := newMediaServer(t)
		job := &Job{Report: model.NewSniffReport(server.URL + "/")}

		if err := NewFetchStep(page.NewFetcher(server.Client())).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Document == nil {
			t.Fatal("expected document")
		}
		if job.Report.Title != "Clips" {
			t.Errorf("Title = %q, want Clips", job.Report.Title)
		}
	})

	t.Run("attaches resource log", func(t *testing.T) {
		t.Parallel()

		server := newMediaServer(t)
		log := page.NewResourceLog([]page.TimingEntry{{Name: server.URL + "/small.jpg", TransferSize: 9}})
		job := &Job{Report: model.NewSniffReport(server.URL + "/")}

		step := NewFetchStep(page.NewFetcher(server.Client()), WithResourceLog(log))
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Document.ResourceLog().Len() != 1 {
			t.Errorf("expected attached log, got %d entries", job.Document.ResourceLog().Len())
		}
	})

	t.Run("marks unreachable page", func(t *testing.T) {
		t.Parallel()

		server := newMediaServer(t)
		job := &Job{Report: model.NewSniffReport(server.URL + "/missing")}

		err := NewFetchStep(page.NewFetcher(server.Client())).Do(context.Background(), job)
		if !errors.Is(err, page.ErrPageUnreachable) {
			t.Fatalf("expected ErrPageUnreachable, got %v", err)
		}
		if !job.Report.Unreachable {
			t.Error("expected report marked unreachable")
		}
	})
}

func TestSnapshotStepDo(t *testing.T) {
	t.Parallel()

	t.Run("parses snapshot", func(t *testing.T) {
		t.Parallel()

		job := &Job{Report: model.NewSniffReport("https://example.com/watch")}
		if err := NewSnapshotStep(testPage, nil).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Document == nil || job.Report.Title != "Clips" {
			t.Errorf("unexpected job state: title=%q", job.Report.Title)
		}
	})

	t.Run("invalid page URL is unreachable", func(t *testing.T) {
		t.Parallel()

		job := &Job{Report: model.NewSniffReport("chrome://settings")}
		err := NewSnapshotStep(testPage, nil).Do(context.Background(), job)
		if !errors.Is(err, page.ErrPageUnreachable) {
			t.Fatalf("expected ErrPageUnreachable, got %v", err)
		}
		if !job.Report.Unreachable {
			t.Error("expected report marked unreachable")
		}
	})
}

func TestDetectStepRequiresDocument(t *testing.T) {
	t.Parallel()

	job := &Job{Report: model.NewSniffReport("https://example.com/")}
	if err := NewDetectStep(sniffer.New()).Do(context.Background(), job); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
}

func TestThumbnailStepDo(t *testing.T) {
	t.Parallel()

	report := model.NewSniffReport("https://example.com/")
	report.Resources = []*model.MediaResource{
		model.NewMediaResource("https://example.com/a.mp4", model.MediaTypeVideo),
		model.NewMediaResource("https://example.com/b.jpg", model.MediaTypeImage),
	}
	job := &Job{Report: report}

	step := NewThumbnailStep(thumbnail.NewCapturer(thumbnail.WithGrabber(fakeGrabber{})), nil)
	if err := step.Do(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(report.Resources[0].Thumbnail, "data:image/jpeg;base64,") {
		t.Errorf("expected video thumbnail, got %q", report.Resources[0].Thumbnail)
	}
	if report.Resources[1].Thumbnail != "" {
		t.Error("images should not get captured thumbnails")
	}
}

func TestSniffPipeline(t *testing.T) {
	t.Parallel()

	server := newMediaServer(t)
	client := server.Client()

	p := New()
	p.AddSteps(
		NewFetchStep(page.NewFetcher(client)),
		NewDetectStep(sniffer.New()),
		NewSizeStep(sizing.NewResolver(client)),
	)

	report := model.NewSniffReport(server.URL + "/")
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, 0, len(report.Resources))
	for _, r := range report.Resources {
		got = append(got, strings.TrimPrefix(r.URL, server.URL))
	}
	if want := []string{"/big.mp4", "/small.jpg"}; !slices.Equal(got, want) {
		t.Fatalf("resources = %v, want %v", got, want)
	}
	if report.Resources[0].Size != 204800 || report.Resources[1].Size != 1024 {
		t.Errorf("unexpected sizes: %d, %d", report.Resources[0].Size, report.Resources[1].Size)
	}
	if report.Resources[0].Type != model.MediaTypeVideo {
		t.Errorf("expected video first, got %s", report.Resources[0].Type)
	}
	if !slices.Equal(report.PerformedSteps, []string{StepFetch, StepDetect, StepSize}) {
		t.Errorf("PerformedSteps = %v", report.PerformedSteps)
	}
}
