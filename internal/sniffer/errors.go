package sniffer

import "errors"

// ErrStrategyPanic is recorded when a strategy panics during detection.
var ErrStrategyPanic = errors.New("strategy panicked")
