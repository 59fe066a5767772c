// Package config handles configuration loading, validation, and management for veridoc.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete service configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Analysis holds rule thresholds and batch limits.
	Analysis AnalysisConfig `toml:"analysis" json:"analysis" yaml:"analysis"`

	// Server holds the HTTP API configuration.
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Storage holds report persistence configuration.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Watch holds intake directory monitoring configuration.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// Cache holds the result cache configuration.
	Cache CacheConfig `toml:"cache" json:"cache" yaml:"cache"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// AnalysisConfig holds the tunable parameters of the analysis pipeline.
type AnalysisConfig struct {
	// MismatchToleranceHours is how far filesystem and document
	// timestamps may drift before a cross-check mismatch is flagged.
	MismatchToleranceHours int `toml:"mismatch_tolerance_hours" json:"mismatch_tolerance_hours" yaml:"mismatch_tolerance_hours"`

	// HighMismatchDays is the mismatch delta, in days, past which a
	// cross-check flag escalates from medium to high severity.
	HighMismatchDays int `toml:"high_mismatch_days" json:"high_mismatch_days" yaml:"high_mismatch_days"`

	// StrippedRatio is the fraction of expected fields that must be
	// absent before a document counts as stripped.
	StrippedRatio float64 `toml:"stripped_ratio" json:"stripped_ratio" yaml:"stripped_ratio"`

	// CautionMin and SuspiciousMin are the inclusive risk score
	// boundaries of the caution and suspicious bands.
	CautionMin    int `toml:"caution_min" json:"caution_min" yaml:"caution_min"`
	SuspiciousMin int `toml:"suspicious_min" json:"suspicious_min" yaml:"suspicious_min"`

	// GenericTokens are author/title values treated as placeholder
	// identities. Empty means the built-in list.
	GenericTokens []string `toml:"generic_tokens" json:"generic_tokens" yaml:"generic_tokens"`

	// ExpectedFields overrides, per format tag (pdf, docx, xlsx,
	// pptx), the descriptive fields a document is expected to carry.
	// Empty means the built-in sets.
	ExpectedFields map[string][]string `toml:"expected_fields" json:"expected_fields" yaml:"expected_fields"`

	// MaxBatchConcurrency bounds concurrent items in a batch analysis.
	MaxBatchConcurrency int `toml:"max_batch_concurrency" json:"max_batch_concurrency" yaml:"max_batch_concurrency"`
}

// Tolerance returns the cross-check tolerance as a duration.
func (a *AnalysisConfig) Tolerance() time.Duration {
	return time.Duration(a.MismatchToleranceHours) * time.Hour
}

// HighMismatchDelta returns the severity escalation delta as a duration.
func (a *AnalysisConfig) HighMismatchDelta() time.Duration {
	return time.Duration(a.HighMismatchDays) * 24 * time.Hour
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`

	ReadTimeoutSec  int `toml:"read_timeout_sec" json:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int `toml:"write_timeout_sec" json:"write_timeout_sec" yaml:"write_timeout_sec"`

	// ShutdownTimeoutSec bounds graceful shutdown.
	ShutdownTimeoutSec int `toml:"shutdown_timeout_sec" json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`

	// MaxUploadMB is the largest accepted upload in megabytes.
	MaxUploadMB int64 `toml:"max_upload_mb" json:"max_upload_mb" yaml:"max_upload_mb"`

	// UploadDir is where uploads are spooled during analysis.
	// Empty means the system temp directory.
	UploadDir string `toml:"upload_dir" json:"upload_dir" yaml:"upload_dir"`
}

// StorageConfig holds report persistence configuration.
type StorageConfig struct {
	// Type is the storage backend type: "sqlite" or "memory".
	Type string `toml:"type" json:"type" yaml:"type"`

	// Path is the path to the database file (for sqlite).
	Path string `toml:"path" json:"path" yaml:"path"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `toml:"max_connections" json:"max_connections" yaml:"max_connections"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// WatchConfig holds intake directory monitoring configuration.
type WatchConfig struct {
	// Enabled turns directory intake on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Paths is a list of directories to monitor for documents.
	Paths []string `toml:"paths" json:"paths" yaml:"paths"`

	// IncludePatterns are glob patterns for files to include.
	// If empty, every supported document type is included.
	IncludePatterns []string `toml:"include_patterns" json:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns are glob patterns for files to exclude.
	ExcludePatterns []string `toml:"exclude_patterns" json:"exclude_patterns" yaml:"exclude_patterns"`

	// DebounceMs is the debounce interval in milliseconds. Files must
	// be stable for this duration before analysis.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`

	// MaxFileSize is the maximum file size to analyze in bytes.
	// Files larger than this are skipped.
	MaxFileSize int64 `toml:"max_file_size" json:"max_file_size" yaml:"max_file_size"`
}

// Debounce returns the debounce interval as a duration.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// CacheConfig holds the digest-keyed result cache configuration.
type CacheConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Size is the number of results kept before LRU eviction.
	Size int `toml:"size" json:"size" yaml:"size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the destination: "stdout", "stderr", or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables take precedence over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VERIDOC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("VERIDOC_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("VERIDOC_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("VERIDOC_UPLOAD_DIR"); v != "" {
		c.Server.UploadDir = v
	}
	if v := os.Getenv("VERIDOC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VERIDOC_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("VERIDOC_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.Size = n
		}
	}
	if v := os.Getenv("VERIDOC_MAX_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Analysis.MaxBatchConcurrency = n
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Analysis.GenericTokens = append([]string(nil), c.Analysis.GenericTokens...)
	if c.Analysis.ExpectedFields != nil {
		fields := make(map[string][]string, len(c.Analysis.ExpectedFields))
		for tag, names := range c.Analysis.ExpectedFields {
			fields[tag] = append([]string(nil), names...)
		}
		clone.Analysis.ExpectedFields = fields
	}
	clone.Watch.Paths = append([]string(nil), c.Watch.Paths...)
	clone.Watch.IncludePatterns = append([]string(nil), c.Watch.IncludePatterns...)
	clone.Watch.ExcludePatterns = append([]string(nil), c.Watch.ExcludePatterns...)
	return &clone
}

// DataDir returns the platform data directory for veridoc.
func DataDir() string {
	if envDir := os.Getenv("VERIDOC_DATA_DIR"); envDir != "" {
		return envDir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".veridoc"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "veridoc")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "veridoc")
		}
		return filepath.Join(home, ".local", "share", "veridoc")
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if envPath := os.Getenv("VERIDOC_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(DataDir(), "config.toml")
}

// SaveConfig writes the configuration to the given path as TOML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
