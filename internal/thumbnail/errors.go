package thumbnail

import "errors"

var (
	// ErrNoVideoStream is returned when the probe finds no video stream.
	ErrNoVideoStream = errors.New("no video stream")

	// ErrEmptyFrame is returned when the encoder produced no output.
	ErrEmptyFrame = errors.New("empty frame")
)
