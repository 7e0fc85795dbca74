package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no page URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one page URL")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when a concurrency limit is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidThumbnailLimit is returned when the thumbnail limit is negative.
	ErrInvalidThumbnailLimit = errors.New("invalid thumbnail limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when a size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid size limit: must be non-negative")

	// ErrConflictingProxies is returned when both --tor-proxy and
	// --embedded-tor are specified.
	ErrConflictingProxies = errors.New("conflicting proxies: --tor-proxy and --embedded-tor cannot be used together")

	// ErrInvalidSubmitType is returned for an unknown --submit value.
	ErrInvalidSubmitType = errors.New("invalid submit type: must be all, video, image or audio")

	// ErrSnapshotNeedsOneTarget is returned when --html or --har is used
	// with more than one target.
	ErrSnapshotNeedsOneTarget = errors.New("--html and --har require exactly one target URL")

	// ErrMissingAPIURL is returned when MyNest is used without an API URL.
	ErrMissingAPIURL = errors.New("mynest.api_url is not configured")
)
