package report

import (
	"github.com/mynest/mediasniff/internal/model"
)

// Summary aggregates the reports of a batch sniff.
type Summary struct {
	// Pages is the number of pages sniffed.
	Pages int `json:"pages"`

	// Resources is the number of resources across all pages.
	Resources int `json:"resources"`

	// Counts holds the number of resources per media type.
	Counts map[model.MediaType]int `json:"counts"`

	// TotalSize is the sum of known resource sizes.
	TotalSize int64 `json:"total_size"`

	// Failed lists the pages whose sniff ended with an error.
	Failed []string `json:"failed,omitempty"`
}

// NewSummary aggregates reports. Nil reports, from pages that never
// started, are skipped.
func NewSummary(reports []*model.SniffReport) *Summary {
	s := &Summary{Counts: make(map[model.MediaType]int, len(model.AllMediaTypes))}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Pages++
		s.Resources += len(r.Resources)
		s.TotalSize += r.TotalSize()
		for t, n := range r.CountByType() {
			s.Counts[t] += n
		}
		if r.Failed() {
			s.Failed = append(s.Failed, r.PageURL)
		}
	}
	return s
}
