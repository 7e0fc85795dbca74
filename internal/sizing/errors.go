package sizing

import "errors"

var (
	// ErrImageUnavailable is returned when an image download is rejected.
	ErrImageUnavailable = errors.New("image unavailable")

	// ErrUnknownImageFormat is returned when no dimensions can be read.
	ErrUnknownImageFormat = errors.New("unknown image format")
)
