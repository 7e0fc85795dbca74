package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SniffReport is the result of sniffing a single page.
//
// Resources is ordered by size, largest first, with unknown sizes last.
// Error is set when the pipeline could not complete; in that case
// Resources may be empty or partial.
type SniffReport struct {
	// ID uniquely identifies this sniff. Thumbnail updates refer to it.
	ID string `json:"id"`

	// PageURL is the address of the sniffed page.
	PageURL string `json:"page_url"`

	// Title is the page title, if the page had one.
	Title string `json:"title,omitempty"`

	// StartedAt is when the sniff began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the sniff completed.
	FinishedAt time.Time `json:"finished_at"`

	// Resources contains every detected media resource.
	Resources []*MediaResource `json:"resources"`

	// Error holds a human-readable error message, if any.
	Error string `json:"error,omitempty"`

	// Unreachable is true when the page itself could not be loaded.
	Unreachable bool `json:"unreachable,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewSniffReport creates a new report for the given page.
func NewSniffReport(pageURL string) *SniffReport {
	return &SniffReport{
		ID:        uuid.NewString(),
		PageURL:   pageURL,
		StartedAt: time.Now(),
		Resources: make([]*MediaResource, 0),
	}
}

// HasResources reports whether any resource was found.
func (r *SniffReport) HasResources() bool {
	return len(r.Resources) > 0
}

// Failed reports whether the sniff ended with an error.
func (r *SniffReport) Failed() bool {
	return r.Error != ""
}

// CountByType returns the number of resources of each media type.
func (r *SniffReport) CountByType() map[MediaType]int {
	counts := make(map[MediaType]int, len(AllMediaTypes))
	for _, t := range AllMediaTypes {
		counts[t] = lo.CountBy(r.Resources, func(res *MediaResource) bool {
			return res.Type == t
		})
	}
	return counts
}

// TotalSize returns the sum of all known resource sizes.
func (r *SniffReport) TotalSize() int64 {
	return lo.SumBy(r.Resources, func(res *MediaResource) int64 {
		return res.Size
	})
}

// ResourcesOfType returns the resources of the given type, preserving order.
func (r *SniffReport) ResourcesOfType(t MediaType) []*MediaResource {
	return lo.Filter(r.Resources, func(res *MediaResource, _ int) bool {
		return res.Type == t
	})
}

// Duration returns the time spent sniffing.
func (r *SniffReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ApplyThumbnail sets the thumbnail of the resource with the given URL.
// It returns false if no such resource exists.
func (r *SniffReport) ApplyThumbnail(update ThumbnailUpdate) bool {
	res, ok := lo.Find(r.Resources, func(res *MediaResource) bool {
		return res.URL == update.URL
	})
	if !ok {
		return false
	}
	res.Thumbnail = update.Thumbnail
	return true
}

// ThumbnailUpdate carries a thumbnail captured after the initial
// sniff response was delivered.
type ThumbnailUpdate struct {
	// SniffID is the ID of the SniffReport the resource belongs to.
	SniffID string `json:"sniff_id"`

	// URL identifies the video resource.
	URL string `json:"url"`

	// Thumbnail is a JPEG data URI.
	Thumbnail string `json:"thumbnail"`
}

// Clone returns a deep copy of the report.
func (r *SniffReport) Clone() *SniffReport {
	c := *r
	c.Resources = CloneResources(r.Resources)
	c.PerformedSteps = slices.Clone(r.PerformedSteps)
	return &c
}
