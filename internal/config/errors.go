package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no URL or list file is specified for a scan.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidTestFraction is returned when the held-out fraction is not
	// strictly between 0 and 1.
	ErrInvalidTestFraction = errors.New("invalid test fraction: must be between 0 and 1")

	// ErrNoModelPath is returned when the classifier is enabled without a
	// model file path.
	ErrNoModelPath = errors.New("no model path: set --model or disable the classifier")

	// ErrInvalidServerAddr is returned when the listen address is not host:port.
	ErrInvalidServerAddr = errors.New("invalid server address: expected host:port")

	// ErrInvalidPort is returned when the PORT environment variable is not a
	// valid TCP port.
	ErrInvalidPort = errors.New("invalid port: must be a number between 1 and 65535")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrInvalidRequestTimeout is returned when the request timeout is not positive.
	ErrInvalidRequestTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")
)
