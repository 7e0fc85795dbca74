package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mynest/mediasniff/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one sniff report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.SniffReport) (int, error)

	// WriteSummary outputs the aggregate of a batch sniff.
	WriteSummary(summary *Summary) (int, error)
}

// MultiWriter writes to multiple Writers, such as the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.SniffReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// formatSize renders a byte count, or "unknown" for 0.
func formatSize(size int64) string {
	if size <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(size))
}

// typeLabel returns the display name of a media type, e.g. "Video".
func typeLabel(t model.MediaType) string {
	return cases.Title(language.English).String(string(t))
}

// formatDimensions renders WxH, or "-" when either side is unknown.
func formatDimensions(r *model.MediaResource) string {
	if r.Width <= 0 || r.Height <= 0 {
		return "-"
	}
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// statusText describes how a sniff ended.
func statusText(report *model.SniffReport) string {
	switch {
	case report.Unreachable:
		return "cannot sniff this page"
	case report.Failed():
		return "error: " + report.Error
	default:
		return "complete"
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
