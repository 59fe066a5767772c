// Package store persists analysis reports.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a report ID does not exist.
var ErrNotFound = errors.New("store: report not found")

// Report is one persisted analysis outcome. Result holds the full
// pipeline output as JSON; the scalar columns are denormalized for
// listing and filtering.
type Report struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Format    string          `json:"format"`
	SHA256    string          `json:"sha256,omitempty"`
	RiskScore int             `json:"risk_score"`
	RiskLevel string          `json:"risk_level,omitempty"`
	FlagCount int             `json:"flag_count"`
	Failed    bool            `json:"failed"`
	CreatedAt time.Time       `json:"created_at"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// ListOptions narrow a report listing. Zero values mean no filter;
// Limit zero means the default page size.
type ListOptions struct {
	Level  string
	Format string
	Limit  int
	Offset int
}

// DefaultListLimit caps unpaged listings.
const DefaultListLimit = 100

// Store is the report persistence interface.
type Store interface {
	Insert(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, opts ListOptions) ([]Report, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
