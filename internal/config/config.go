package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "urlscan"

	// DefaultModelFile is the file name of the classifier snapshot inside
	// the XDG data directory.
	DefaultModelFile = "model.json"

	// DefaultModelVariant is the classifier used when none is configured.
	DefaultModelVariant = "random_forest"

	// DefaultTestFraction is the share of labeled URLs held out during training.
	DefaultTestFraction = 0.2

	// DefaultSeed makes training reproducible.
	DefaultSeed = 42

	// DefaultBatchSize is the number of URLs scanned at once.
	// Scoring is CPU-bound and fast, so this mostly bounds memory.
	DefaultBatchSize = 10

	// DefaultPort is the HTTP port used when PORT is not set.
	DefaultPort = "8000"

	// DefaultServerAddr listens on all interfaces.
	DefaultServerAddr = "0.0.0.0:" + DefaultPort

	// DefaultCacheTTL is how long a scan result is served from redis.
	DefaultCacheTTL = time.Hour

	// DefaultRequestTimeout bounds one API request, including cache access.
	DefaultRequestTimeout = 10 * time.Second

	// LogFormatText and LogFormatJSON select the slog handler.
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultAllowedOrigins allows any origin. The API never uses credentials.
var DefaultAllowedOrigins = []string{"*"}

// Config holds all configuration options for urlscan.
// This struct is populated from defaults, the config file, the environment
// and CLI flags, and passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ServerConfig, ModelConfig) for simplicity. The YAML file has
// sections, but they are flattened here by File.Apply.
type Config struct {
	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects text or JSON log output.
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .urlscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// ModelPath is the classifier snapshot to load or write.
	ModelPath string

	// ModelVariant is the classifier variant used for training.
	ModelVariant string

	// DisableClassifier scores with the rule table only.
	DisableClassifier bool

	// TestFraction is the share of labeled data held out during training.
	TestFraction float64

	// Seed drives every random choice during training.
	Seed uint64

	// Targets is the list of URLs to scan.
	Targets []string

	// BatchSize is the number of concurrent scans when processing multiple URLs.
	BatchSize int

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to XDG data directory (~/.local/share/urlscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan results to the database.
	SaveToDB bool

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string

	// AllowedOrigins are the CORS origins accepted by the API.
	AllowedOrigins []string

	// RedisAddr enables the result cache when non-empty.
	RedisAddr string

	// RedisPassword authenticates against redis.
	RedisPassword string

	// RedisDB selects the redis database number.
	RedisDB int

	// CacheTTL is the lifetime of a cached scan result.
	CacheTTL time.Duration

	// RequestTimeout bounds one API request.
	RequestTimeout time.Duration
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., port, seed, test
// fraction). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		LogFormat:      LogFormatText,
		ModelPath:      filepath.Join(XDGDataDir(), DefaultModelFile),
		ModelVariant:   DefaultModelVariant,
		TestFraction:   DefaultTestFraction,
		Seed:           DefaultSeed,
		BatchSize:      DefaultBatchSize,
		DBDir:          XDGDataDir(),
		ServerAddr:     DefaultServerAddr,
		AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
		CacheTTL:       DefaultCacheTTL,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// XDGDataDir returns the XDG data directory for urlscan.
// On Linux: ~/.local/share/urlscan
// On macOS: ~/Library/Application Support/urlscan
// On Windows: %LOCALAPPDATA%\urlscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for urlscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by every command.
// It returns the first problem found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return ErrInvalidTestFraction
	}

	if !c.DisableClassifier && c.ModelPath == "" {
		return ErrNoModelPath
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateScan checks the options of the scan command.
func (c *Config) ValidateScan() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ValidateServer checks the options of the serve command.
func (c *Config) ValidateServer() error {
	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return ErrInvalidServerAddr
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	return c.Validate()
}

// CacheEnabled reports whether a redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
