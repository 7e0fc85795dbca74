package model

import "strings"

// MediaType is the kind of a detected media resource.
type MediaType string

// Media type constants.
const (
	// MediaTypeUnknown is the zero value. A MediaResource never carries it.
	MediaTypeUnknown MediaType = ""
	// MediaTypeImage represents still images.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo represents video files and streaming manifests.
	MediaTypeVideo MediaType = "video"
	// MediaTypeAudio represents audio files.
	MediaTypeAudio MediaType = "audio"
)

// AllMediaTypes lists the known media types in report order.
var AllMediaTypes = []MediaType{MediaTypeVideo, MediaTypeAudio, MediaTypeImage}

// String returns the string representation of the MediaType.
func (t MediaType) String() string {
	if t == MediaTypeUnknown {
		return "unknown"
	}
	return string(t)
}

// IsValid returns true if this is a known media type.
func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAudio:
		return true
	default:
		return false
	}
}

// ParseMediaType converts a string to a MediaType.
// Matching is case-insensitive; unknown strings yield MediaTypeUnknown.
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return MediaTypeImage
	case "video":
		return MediaTypeVideo
	case "audio":
		return MediaTypeAudio
	default:
		return MediaTypeUnknown
	}
}

// MediaResource is one media resource discovered on a page.
//
// URL is the unique key within a single sniff. Type is assigned by the
// detecting strategy and never changes afterwards. Zero values of Size,
// Width and Height mean "unknown", and an empty Thumbnail means no
// preview is available.
type MediaResource struct {
	// URL is the absolute http(s) address of the resource.
	URL string `json:"url"`

	// Type is the media kind.
	Type MediaType `json:"type"`

	// Size is the resource size in bytes. 0 means unknown.
	Size int64 `json:"size,omitempty"`

	// Width is the intrinsic or declared width in pixels.
	Width int `json:"width,omitempty"`

	// Height is the intrinsic or declared height in pixels.
	Height int `json:"height,omitempty"`

	// Alt is descriptive text taken from alt or title attributes.
	Alt string `json:"alt,omitempty"`

	// Thumbnail is a data URI or URL of a preview image.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// NewMediaResource creates a resource with the given URL and type.
func NewMediaResource(url string, mediaType MediaType) *MediaResource {
	return &MediaResource{
		URL:  url,
		Type: mediaType,
	}
}

// HasKnownSize reports whether the size has been resolved to a positive value.
func (r *MediaResource) HasKnownSize() bool {
	return r.Size > 0
}

// HasDimensions reports whether both width and height are known.
func (r *MediaResource) HasDimensions() bool {
	return r.Width > 0 && r.Height > 0
}

// Clone returns a shallow copy of the resource.
// All fields are values, so the copy shares nothing with the original.
func (r *MediaResource) Clone() *MediaResource {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// CloneResources copies every resource in the slice.
func CloneResources(resources []*MediaResource) []*MediaResource {
	out := make([]*MediaResource, len(resources))
	for i, r := range resources {
		out[i] = r.Clone()
	}
	return out
}
