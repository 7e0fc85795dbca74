package pipeline

import "errors"

// ErrNoDocument is returned by steps that need a loaded page when no
// loading step ran before them.
var ErrNoDocument = errors.New("no page loaded: add a fetch or snapshot step first")
