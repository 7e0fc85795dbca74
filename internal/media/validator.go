package media

import (
	"net/url"
	"strings"
)

const (
	schemeData  = "data:"
	schemeBlob  = "blob:"
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// ResolveResourceURL validates candidate and returns its absolute form.
//
// Empty candidates, data: URIs and blob: URIs are rejected. Relative
// references are resolved against base, which may be nil for candidates
// that are already absolute. Only http and https results with a host
// are accepted.
func ResolveResourceURL(candidate string, base *url.URL) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	lower := strings.ToLower(candidate)
	if strings.HasPrefix(lower, schemeData) || strings.HasPrefix(lower, schemeBlob) {
		return "", false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	if u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	return u.String(), true
}

// IsValidResourceURL reports whether candidate is usable as a media URL.
func IsValidResourceURL(candidate string, base *url.URL) bool {
	_, ok := ResolveResourceURL(candidate, base)
	return ok
}

// IsBlobURL reports whether s is an ephemeral blob: reference.
func IsBlobURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), schemeBlob)
}
