package bridge

import "errors"

// MsgUnreachable is the error reported to hosts when the page could not be
// loaded at all.
const MsgUnreachable = "cannot sniff this page"

var (
	// ErrEmptyRequest is returned when a request has neither URL nor HTML.
	ErrEmptyRequest = errors.New("request needs a url or html")

	// ErrNoSubmitter is returned when downloads are requested but no
	// MyNest client is configured.
	ErrNoSubmitter = errors.New("mynest is not configured")

	// ErrNoDownloadURL is returned when a download request carries no
	// usable URL.
	ErrNoDownloadURL = errors.New("no valid URL to download")
)
