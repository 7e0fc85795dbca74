package mynest

import "errors"

var (
	// ErrNotConfigured is returned when no API URL is set.
	ErrNotConfigured = errors.New("mynest API URL is not configured")

	// ErrInvalidURL is returned when a submitted URL is not http(s).
	ErrInvalidURL = errors.New("invalid download URL: must be http or https")

	// ErrRejected is returned when MyNest answers with success=false or an
	// error status.
	ErrRejected = errors.New("mynest rejected the request")
)
