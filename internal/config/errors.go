package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when a fetch, model or upload timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the page size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCollectorURL is returned when the collector URL is not an
	// absolute http or https URL.
	ErrInvalidCollectorURL = errors.New("invalid collector URL: must be an http or https URL")

	// ErrInvalidRateLimit is returned for a negative collector rate limit or burst.
	ErrInvalidRateLimit = errors.New("invalid collector rate limit: must be non-negative")

	// ErrNoTorProxy is returned when Tor is enabled without a proxy address
	// and without the embedded daemon.
	ErrNoTorProxy = errors.New("tor is enabled but no proxy address is set")
)
