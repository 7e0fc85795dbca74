package page

import (
	"net/url"
	"strings"
)

// TimingEntry is one entry of the passive network resource log.
// Field names follow the browser's PerformanceResourceTiming interface
// so entries posted by the extension decode directly.
type TimingEntry struct {
	// Name is the resource URL.
	Name string `json:"name"`

	// TransferSize is the size fetched over the network, including headers.
	// It is 0 for cached or cross-origin resources without Timing-Allow-Origin.
	TransferSize int64 `json:"transferSize"`

	// EncodedBodySize is the size of the payload body before decoding.
	EncodedBodySize int64 `json:"encodedBodySize"`

	// InitiatorType is the kind of element or API that loaded the resource,
	// such as "img", "video", "css" or "fetch".
	InitiatorType string `json:"initiatorType"`
}

// Size returns the best byte size estimate for the entry:
// TransferSize if positive, else EncodedBodySize if positive, else 0.
func (e TimingEntry) Size() int64 {
	if e.TransferSize > 0 {
		return e.TransferSize
	}
	if e.EncodedBodySize > 0 {
		return e.EncodedBodySize
	}
	return 0
}

// ResourceLog is an ordered, read-only list of timing entries.
// A nil *ResourceLog behaves as an empty log.
type ResourceLog struct {
	entries []TimingEntry
	first   map[string]int
}

// NewResourceLog builds a log from entries, keeping their order.
func NewResourceLog(entries []TimingEntry) *ResourceLog {
	l := &ResourceLog{
		entries: make([]TimingEntry, 0, len(entries)),
		first:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		for _, key := range entryKeys(e.Name) {
			if _, seen := l.first[key]; !seen {
				l.first[key] = len(l.entries)
			}
		}
		l.entries = append(l.entries, e)
	}
	return l
}

// Entries returns all entries in observation order.
func (l *ResourceLog) Entries() []TimingEntry {
	if l == nil {
		return nil
	}
	return l.entries
}

// Len returns the number of entries.
func (l *ResourceLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Lookup returns the first entry whose name matches rawURL. Names match
// as written or after the escaping and dot-segment removal that resource
// URLs go through when resolved against a page.
func (l *ResourceLog) Lookup(rawURL string) (TimingEntry, bool) {
	if l == nil {
		return TimingEntry{}, false
	}
	i, ok := l.first[rawURL]
	if !ok {
		key := canonicalName(rawURL)
		if key == "" {
			return TimingEntry{}, false
		}
		if i, ok = l.first[key]; !ok {
			return TimingEntry{}, false
		}
	}
	return l.entries[i], true
}

// entryKeys returns the distinct keys an entry name is indexed under.
func entryKeys(name string) []string {
	keys := []string{name}
	u, err := url.Parse(strings.TrimSpace(name))
	if err != nil || !u.IsAbs() {
		return keys
	}
	for _, k := range []string{u.String(), u.ResolveReference(u).String()} {
		if k != keys[len(keys)-1] && k != keys[0] {
			keys = append(keys, k)
		}
	}
	return keys
}

// canonicalName returns rawURL escaped and with dot segments removed,
// or "" when it is not an absolute URL.
func canonicalName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() {
		return ""
	}
	return u.ResolveReference(u).String()
}
