package config

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strings"

	"veridoc/internal/metadata"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateAnalysis(&c.Analysis)...)
	errs = append(errs, validateServer(&c.Server)...)
	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateWatch(&c.Watch)...)
	errs = append(errs, validateCache(&c.Cache)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAnalysis(a *AnalysisConfig) ValidationErrors {
	var errs ValidationErrors

	if a.MismatchToleranceHours <= 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.mismatch_tolerance_hours",
			Message: "must be positive",
		})
	}
	if a.HighMismatchDays <= 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.high_mismatch_days",
			Message: "must be positive",
		})
	}
	if a.StrippedRatio <= 0 || a.StrippedRatio > 1 {
		errs = append(errs, ValidationError{
			Field:   "analysis.stripped_ratio",
			Message: fmt.Sprintf("must be in (0, 1], got %g", a.StrippedRatio),
		})
	}
	if a.CautionMin <= 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.caution_min",
			Message: "must be positive",
		})
	}
	if a.SuspiciousMin <= a.CautionMin {
		errs = append(errs, ValidationError{
			Field:   "analysis.suspicious_min",
			Message: fmt.Sprintf("must exceed caution_min (%d)", a.CautionMin),
		})
	}
	if a.MaxBatchConcurrency <= 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.max_batch_concurrency",
			Message: "must be positive",
		})
	}
	for tag, names := range a.ExpectedFields {
		if !slices.Contains(metadata.Formats(), metadata.Format(tag)) {
			errs = append(errs, ValidationError{
				Field:   "analysis.expected_fields",
				Message: fmt.Sprintf("unknown format tag %q", tag),
			})
		}
		if len(names) == 0 {
			errs = append(errs, ValidationError{
				Field:   "analysis.expected_fields",
				Message: fmt.Sprintf("format %q lists no fields", tag),
			})
		}
	}

	return errs
}

func validateServer(s *ServerConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Addr != "" {
		if _, _, err := net.SplitHostPort(s.Addr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.addr",
				Message: fmt.Sprintf("invalid listen address %q", s.Addr),
			})
		}
	}
	if s.MaxUploadMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "must be positive",
		})
	}
	if s.ShutdownTimeoutSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.shutdown_timeout_sec",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	switch s.Type {
	case "sqlite":
		if s.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "storage.path",
				Message: "required for sqlite storage",
			})
		} else if !filepath.IsAbs(s.Path) && !strings.HasPrefix(s.Path, ".") {
			// Relative paths are allowed but must be deliberate.
			errs = append(errs, ValidationError{
				Field:   "storage.path",
				Message: fmt.Sprintf("ambiguous relative path %q (prefix with ./)", s.Path),
			})
		}
	case "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.type",
			Message: fmt.Sprintf("unknown type %q (expected sqlite or memory)", s.Type),
		})
	}

	if s.MaxConnections < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_connections",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateWatch(w *WatchConfig) ValidationErrors {
	var errs ValidationErrors

	if w.Enabled && len(w.Paths) == 0 {
		errs = append(errs, ValidationError{
			Field:   "watch.paths",
			Message: "required when watching is enabled",
		})
	}
	if w.DebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "watch.debounce_ms",
			Message: "must not be negative",
		})
	}
	if w.MaxFileSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "watch.max_file_size",
			Message: "must not be negative",
		})
	}
	for _, pattern := range w.IncludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, ValidationError{
				Field:   "watch.include_patterns",
				Message: fmt.Sprintf("invalid pattern %q", pattern),
			})
		}
	}
	for _, pattern := range w.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, ValidationError{
				Field:   "watch.exclude_patterns",
				Message: fmt.Sprintf("invalid pattern %q", pattern),
			})
		}
	}

	return errs
}

func validateCache(c *CacheConfig) ValidationErrors {
	var errs ValidationErrors

	if c.Enabled && c.Size <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.size",
			Message: "must be positive when the cache is enabled",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", l.Level),
		})
	}

	switch l.Format {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", l.Format),
		})
	}

	switch l.Output {
	case "", "stdout", "stderr":
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "required when output is file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q", l.Output),
		})
	}

	return errs
}
