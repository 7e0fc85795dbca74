// Package report renders sniff results.
//
// Writers for three formats implement the Writer interface:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with tables and a mermaid chart of media types
//
// Each writer renders a single SniffReport or a Summary of a batch.
package report
