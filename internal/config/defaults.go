package config

import "path/filepath"

// Default analysis parameters. These match the built-in rule
// thresholds so an empty config file and no config file behave the
// same.
const (
	DefaultMismatchToleranceHours = 24
	DefaultHighMismatchDays       = 30
	DefaultStrippedRatio          = 0.5
	DefaultCautionMin             = 2
	DefaultSuspiciousMin          = 5
	DefaultMaxBatchConcurrency    = 4
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Analysis: AnalysisConfig{
			MismatchToleranceHours: DefaultMismatchToleranceHours,
			HighMismatchDays:       DefaultHighMismatchDays,
			StrippedRatio:          DefaultStrippedRatio,
			CautionMin:             DefaultCautionMin,
			SuspiciousMin:          DefaultSuspiciousMin,
			MaxBatchConcurrency:    DefaultMaxBatchConcurrency,
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8420",
			ReadTimeoutSec:     30,
			WriteTimeoutSec:    60,
			ShutdownTimeoutSec: 15,
			MaxUploadMB:        64,
		},
		Storage: StorageConfig{
			Type:           "sqlite",
			Path:           filepath.Join(DataDir(), "reports.db"),
			MaxConnections: 4,
			BusyTimeoutMs:  5000,
		},
		Watch: WatchConfig{
			Enabled:     false,
			DebounceMs:  500,
			MaxFileSize: 256 * 1024 * 1024,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
