package media

import "errors"

var (
	// ErrEmptyPlatform is returned when a platform entry has no name or no hosts.
	ErrEmptyPlatform = errors.New("platform must have a name and at least one host pattern")

	// ErrInvalidPlatformPattern is returned when a host pattern is not a valid regular expression.
	ErrInvalidPlatformPattern = errors.New("invalid platform host pattern")
)
