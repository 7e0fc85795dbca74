package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mynest/mediasniff/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.SniffReport {
	report := model.NewSniffReport("https://example.com/watch")
	report.Title = "Watch"
	report.FinishedAt = report.StartedAt.Add(1500 * time.Millisecond)
	report.Resources = []*model.MediaResource{
		{URL: "https://cdn.example.com/big.mp4", Type: model.MediaTypeVideo, Size: 204800, Width: 1280, Height: 720},
		{URL: "https://cdn.example.com/song.mp3", Type: model.MediaTypeAudio, Size: 4096},
		{URL: "https://cdn.example.com/small.jpg", Type: model.MediaTypeImage, Size: 1024, Alt: "a small picture"},
		{URL: "https://cdn.example.com/unknown.png", Type: model.MediaTypeImage},
	}
	return report
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"MEDIA SNIFF REPORT",
			"https://example.com/watch",
			"Title:    Watch",
			"Status:   complete",
			"1 video, 1 audio, 2 image",
			"VIDEO (1)",
			"IMAGE (2)",
			"[205 kB] https://cdn.example.com/big.mp4",
			"[unknown] https://cdn.example.com/unknown.png",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "Description:") {
			t.Error("descriptions should only appear in verbose mode")
		}
	})

	t.Run("verbose adds details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Dimensions: 1280x720") {
			t.Error("expected dimensions in verbose output")
		}
		if !strings.Contains(output, "Description: a small picture") {
			t.Error("expected description in verbose output")
		}
	})

	t.Run("shows empty sections when configured", func(t *testing.T) {
		t.Parallel()

		report := model.NewSniffReport("https://example.com/")

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "AUDIO (0)") {
			t.Error("expected empty audio section")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "AUDIO (0)") {
			t.Error("empty sections should be hidden by default")
		}
	})

	t.Run("shows unreachable status", func(t *testing.T) {
		t.Parallel()

		report := model.NewSniffReport("https://down.example.com/")
		report.Unreachable = true
		report.Error = "page is unreachable"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Status:   cannot sniff this page") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := createTestReport()
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.SniffReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.ID != report.ID || len(decoded.Resources) != 4 {
			t.Errorf("unexpected decoded report: %+v", decoded)
		}
		if strings.Contains(strings.TrimSpace(buf.String()), "\n") {
			t.Error("compact JSON should be a single line")
		}
	})

	t.Run("pretty prints", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"id\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" || decoded.Report == nil {
			t.Errorf("unexpected wrapper: %+v", decoded)
		}
	})

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := NewSummary([]*model.SniffReport{createTestReport()})
		if _, err := NewJSONWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"video":1`) {
			t.Errorf("expected per-type counts, got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Media Sniff Report",
			"`https://example.com/watch`",
			"## Media Types",
			"```mermaid",
			"pie",
			"## Video (1)",
			"## Image (2)",
			"[https://cdn.example.com/big.mp4](https://cdn.example.com/big.mp4)",
			"1280x720",
			"205 kB",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("notes empty result without chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewSniffReport("https://example.com/")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No media resources were found") {
			t.Error("expected empty note")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("chart should be omitted when nothing was found")
		}
	})

	t.Run("warns on unreachable page", func(t *testing.T) {
		t.Parallel()

		report := model.NewSniffReport("https://down.example.com/")
		report.Unreachable = true
		report.Error = "page is unreachable"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Cannot sniff this page") {
			t.Errorf("expected warning, got %s", buf.String())
		}
	})

	t.Run("writes summary with failed pages", func(t *testing.T) {
		t.Parallel()

		failed := model.NewSniffReport("https://down.example.com/")
		failed.Error = "boom"

		var buf bytes.Buffer
		summary := NewSummary([]*model.SniffReport{createTestReport(), failed, nil})
		if _, err := NewMarkdownWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Failed Pages") || !strings.Contains(output, "https://down.example.com/") {
			t.Errorf("expected failed pages, got %s", output)
		}
	})
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	failed := model.NewSniffReport("https://down.example.com/")
	failed.Error = "boom"

	s := NewSummary([]*model.SniffReport{createTestReport(), failed, nil, createTestReport()})

	if s.Pages != 3 {
		t.Errorf("Pages = %d, want 3", s.Pages)
	}
	if s.Resources != 8 {
		t.Errorf("Resources = %d, want 8", s.Resources)
	}
	if s.Counts[model.MediaTypeImage] != 4 || s.Counts[model.MediaTypeVideo] != 2 {
		t.Errorf("unexpected counts: %v", s.Counts)
	}
	if s.TotalSize != 2*(204800+4096+1024) {
		t.Errorf("TotalSize = %d", s.TotalSize)
	}
	if len(s.Failed) != 1 || s.Failed[0] != "https://down.example.com/" {
		t.Errorf("Failed = %v", s.Failed)
	}
}

type failingWriter struct{}

func (failingWriter) Write(_ *model.SniffReport) (int, error) { return 0, errors.New("write failed") }
func (failingWriter) WriteSummary(_ *Summary) (int, error)    { return 0, errors.New("write failed") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected output from both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))

		if _, err := mw.Write(createTestReport()); err == nil {
			t.Error("expected error")
		}
		if _, err := mw.WriteSummary(&Summary{}); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after the failing one should not run")
		}
	})
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	if got := formatSize(0); got != "unknown" {
		t.Errorf("formatSize(0) = %q", got)
	}
	if got := formatSize(1024); got != "1.0 kB" {
		t.Errorf("formatSize(1024) = %q", got)
	}
	if got := typeLabel(model.MediaTypeAudio); got != "Audio" {
		t.Errorf("typeLabel = %q", got)
	}
	if got := truncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncateString = %q", got)
	}
}
