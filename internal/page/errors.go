package page

import "errors"

var (
	// ErrPageUnreachable is returned when the page cannot be loaded at all.
	// Callers surface it as a distinct "cannot sniff this page" condition.
	ErrPageUnreachable = errors.New("page is unreachable")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not an HTML document")

	// ErrInvalidPageURL is returned when the page URL is not an absolute http(s) URL.
	ErrInvalidPageURL = errors.New("invalid page URL: must be an absolute http or https URL")

	// ErrInvalidHAR is returned when a HAR file cannot be decoded.
	ErrInvalidHAR = errors.New("invalid HAR file")
)
