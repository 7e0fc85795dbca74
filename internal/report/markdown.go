package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mynest/mediasniff/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SniffReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStatus(md, report)
	w.writeCounts(md, report.CountByType())
	for _, t := range model.AllMediaTypes {
		w.writeResources(md, t, report.ResourcesOfType(t))
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the batch summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Sniff Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(summary.Pages)},
			{"Resources", strconv.Itoa(summary.Resources)},
			{"Known Size", formatSize(summary.TotalSize)},
			{"Failed Pages", strconv.Itoa(len(summary.Failed))},
		},
	})
	md.PlainText("")

	w.writeCounts(md, summary.Counts)

	if len(summary.Failed) > 0 {
		md.H2("Failed Pages")
		md.PlainText("")
		md.BulletList(summary.Failed...)
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SniffReport) {
	md.H1("Media Sniff Report")
	md.PlainText("")

	title := report.Title
	if title == "" {
		title = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Page", "`" + report.PageURL + "`"},
			{"Title", title},
			{"Sniffed", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Sniff ID", "`" + report.ID + "`"},
			{"Known Size", formatSize(report.TotalSize())},
		},
	})
	md.PlainText("")
}

// writeStatus writes an alert when the sniff did not complete.
func (w *MarkdownWriter) writeStatus(md *markdown.Markdown, report *model.SniffReport) {
	switch {
	case report.Unreachable:
		md.Warningf("Cannot sniff this page: %s", report.Error)
	case report.Failed():
		md.Cautionf("Sniff failed: %s", report.Error)
	case !report.HasResources():
		md.Note("No media resources were found on this page.")
	default:
		return
	}
	md.PlainText("")
}

// writeCounts writes the per-type table and, when anything was found,
// a mermaid pie chart of the distribution.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, counts map[model.MediaType]int) {
	md.H2("Media Types")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllMediaTypes)+1)
	total := 0
	for _, t := range model.AllMediaTypes {
		rows = append(rows, []string{typeLabel(t), strconv.Itoa(counts[t])})
		total += counts[t]
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if total == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Media Type Distribution"),
		piechart.WithShowData(true),
	)
	for _, t := range model.AllMediaTypes {
		if counts[t] > 0 {
			chart.LabelAndIntValue(typeLabel(t), uint64(counts[t]))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResources(md *markdown.Markdown, t model.MediaType, resources []*model.MediaResource) {
	if len(resources) == 0 {
		return
	}

	md.H2(typeLabel(t) + " (" + strconv.Itoa(len(resources)) + ")")
	md.PlainText("")

	rows := make([][]string, len(resources))
	for i, r := range resources {
		alt := r.Alt
		if alt == "" {
			alt = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			"[" + truncateString(r.URL, 60) + "](" + r.URL + ")",
			formatSize(r.Size),
			formatDimensions(r),
			truncateString(alt, 40),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Size", "Dimensions", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by mediasniff*")
}
