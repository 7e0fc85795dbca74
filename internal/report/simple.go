package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mynest/mediasniff/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether media types with no resources are shown.
	showEmpty bool

	// verbose adds dimensions, descriptions and thumbnails to each resource.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.SniffReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	for _, t := range model.AllMediaTypes {
		w.writeResources(&sb, t, report.ResourcesOfType(t))
	}
	writeRule(&sb, "=")

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs the batch summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	writeRule(&sb, "=")
	sb.WriteString("SNIFF SUMMARY\n")
	writeRule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Pages:      %d\n", summary.Pages)
	fmt.Fprintf(&sb, "Resources:  %d\n", summary.Resources)
	for _, t := range model.AllMediaTypes {
		fmt.Fprintf(&sb, "  %-8s %d\n", typeLabel(t)+":", summary.Counts[t])
	}
	fmt.Fprintf(&sb, "Known Size: %s\n", formatSize(summary.TotalSize))

	if len(summary.Failed) > 0 {
		fmt.Fprintf(&sb, "\nFailed pages (%d):\n", len(summary.Failed))
		for _, p := range summary.Failed {
			fmt.Fprintf(&sb, "  [x] %s\n", p)
		}
	}
	sb.WriteString("\n")
	writeRule(&sb, "=")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.SniffReport) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	sb.WriteString("MEDIA SNIFF REPORT\n")
	writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Page:     %s\n", report.PageURL)
	if report.Title != "" {
		fmt.Fprintf(sb, "Title:    %s\n", report.Title)
	}
	fmt.Fprintf(sb, "Sniffed:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Status:   %s\n", statusText(report))

	counts := report.CountByType()
	parts := make([]string, 0, len(model.AllMediaTypes))
	for _, t := range model.AllMediaTypes {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	fmt.Fprintf(sb, "Found:    %s (%s known)\n", strings.Join(parts, ", "), formatSize(report.TotalSize()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResources(sb *strings.Builder, t model.MediaType, resources []*model.MediaResource) {
	if len(resources) == 0 && !w.showEmpty {
		return
	}

	writeRule(sb, "-")
	fmt.Fprintf(sb, "%s (%d)\n", strings.ToUpper(typeLabel(t)), len(resources))
	writeRule(sb, "-")
	sb.WriteString("\n")

	if len(resources) == 0 {
		sb.WriteString("  None found\n\n")
		return
	}

	for i, r := range resources {
		fmt.Fprintf(sb, "  %2d. [%s] %s\n", i+1, formatSize(r.Size), r.URL)
		if !w.verbose {
			continue
		}
		if dims := formatDimensions(r); dims != "-" {
			fmt.Fprintf(sb, "      Dimensions: %s\n", dims)
		}
		if r.Alt != "" {
			fmt.Fprintf(sb, "      Description: %s\n", r.Alt)
		}
		if r.Thumbnail != "" {
			fmt.Fprintf(sb, "      Thumbnail: %s\n", truncateString(r.Thumbnail, 60))
		}
	}
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, 70))
	sb.WriteString("\n")
}
