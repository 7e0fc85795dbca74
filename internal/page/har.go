package page

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// harFile holds the subset of HAR 1.2 needed to rebuild a resource log.
// Chrome and Firefox add the non-standard _transferSize and _resourceType
// fields, which are preferred when present.
type harFile struct {
	Log struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

type harEntry struct {
	Request struct {
		URL string `json:"url"`
	} `json:"request"`
	Response struct {
		Status       int   `json:"status"`
		HeadersSize  int64 `json:"headersSize"`
		BodySize     int64 `json:"bodySize"`
		TransferSize int64 `json:"_transferSize"`
		Content      struct {
			MimeType string `json:"mimeType"`
		} `json:"content"`
	} `json:"response"`
	ResourceType string `json:"_resourceType"`
}

// LoadHAR reads a HAR document and converts its entries to a ResourceLog.
// Entries for non-http(s) URLs are dropped.
func LoadHAR(r io.Reader) (*ResourceLog, error) {
	var har harFile
	if err := json.NewDecoder(r).Decode(&har); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHAR, err)
	}

	entries := make([]TimingEntry, 0, len(har.Log.Entries))
	for _, e := range har.Log.Entries {
		u := e.Request.URL
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		entries = append(entries, harTimingEntry(e))
	}
	return NewResourceLog(entries), nil
}

func harTimingEntry(e harEntry) TimingEntry {
	entry := TimingEntry{
		Name:          e.Request.URL,
		InitiatorType: harInitiator(e.Response.Content.MimeType, e.ResourceType),
	}

	switch {
	case e.Response.TransferSize > 0:
		entry.TransferSize = e.Response.TransferSize
	case e.Response.HeadersSize > 0 && e.Response.BodySize > 0:
		entry.TransferSize = e.Response.HeadersSize + e.Response.BodySize
	}
	if e.Response.BodySize > 0 {
		entry.EncodedBodySize = e.Response.BodySize
	}
	return entry
}

// harInitiator derives an initiator hint from the response MIME type,
// falling back to the browser's resource type.
func harInitiator(mimeType, resourceType string) string {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "image/"):
		return "img"
	}

	switch strings.ToLower(resourceType) {
	case "image":
		return "img"
	case "stylesheet":
		return "css"
	case "xhr":
		return "xmlhttprequest"
	default:
		return strings.ToLower(resourceType)
	}
}
