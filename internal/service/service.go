// Package service binds extraction, the analysis engine, persistence
// and caching into the operations the CLI and HTTP API expose.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"veridoc/internal/engine"
	"veridoc/internal/extract"
	"veridoc/internal/logging"
	"veridoc/internal/metadata"
	"veridoc/internal/store"
)

// Outcome is one analyzed document: the stored report ID plus the
// full pipeline result.
type Outcome struct {
	ID string `json:"id"`
	engine.Result
}

// BatchOutcome is the result of a batch analysis.
type BatchOutcome struct {
	engine.Summary
	Results []Outcome `json:"results"`
}

// Options configure a Service.
type Options struct {
	Engine         *engine.Engine
	Store          store.Store
	Metrics        *Metrics
	Log            *logging.Logger
	CacheSize      int // 0 disables the cache
	MaxConcurrency int
	UploadDir      string // empty means os.TempDir
}

// Service runs analyses and persists their reports. Safe for
// concurrent use.
type Service struct {
	engine         *engine.Engine
	store          store.Store
	metrics        *Metrics
	log            *logging.Logger
	cache          *lru.Cache[string, Outcome]
	maxConcurrency int
	uploadDir      string
}

// New creates a Service. The store is required; metrics and cache are
// optional.
func New(opts Options) (*Service, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("service: engine is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("service: store is required")
	}

	log := opts.Log
	if log == nil {
		log = logging.Default().WithComponent("service")
	}

	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = engine.DefaultMaxConcurrency
	}

	s := &Service{
		engine:         opts.Engine,
		store:          opts.Store,
		metrics:        opts.Metrics,
		log:            log,
		maxConcurrency: maxConcurrency,
		uploadDir:      opts.UploadDir,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Outcome](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("service: create cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// AnalyzeFile analyzes one document on disk. A repeated analysis of
// byte-identical content is served from the cache when one is
// configured.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*Outcome, error) {
	start := time.Now()

	in, err := s.collect(path)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && in.Attrs.SHA256 != "" {
		if cached, ok := s.cache.Get(in.Attrs.SHA256); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			s.log.Debug("analysis served from cache", "path", path, "sha256", in.Attrs.SHA256)
			return &cached, nil
		}
	}

	result := s.engine.Analyze(in)
	out, err := s.persist(ctx, result, in.Attrs.SHA256)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && in.Attrs.SHA256 != "" && !result.Failed() {
		s.cache.Add(in.Attrs.SHA256, *out)
	}
	s.observe(result, time.Since(start))
	return out, nil
}

// AnalyzeUpload spools an uploaded document to a temporary file,
// analyzes it, and removes the spool file afterwards.
func (s *Service) AnalyzeUpload(ctx context.Context, filename string, r io.Reader) (*Outcome, error) {
	if _, err := metadata.FormatForPath(filename); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.uploadDir, "veridoc-upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	start := time.Now()
	in, err := s.collect(tmp.Name())
	if err != nil {
		return nil, err
	}
	// Report under the caller's filename, not the spool path.
	in.Name = filepath.Base(filename)
	in.Attrs.Path = in.Name
	format, _ := metadata.FormatForPath(filename)
	in.Format = format

	if s.cache != nil && in.Attrs.SHA256 != "" {
		if cached, ok := s.cache.Get(in.Attrs.SHA256); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			return &cached, nil
		}
	}

	result := s.engine.Analyze(in)
	out, err := s.persist(ctx, result, in.Attrs.SHA256)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && in.Attrs.SHA256 != "" && !result.Failed() {
		s.cache.Add(in.Attrs.SHA256, *out)
	}
	s.observe(result, time.Since(start))
	return out, nil
}

// AnalyzeBatch analyzes a set of paths with bounded concurrency. One
// document's failure never aborts the rest; unreadable files appear
// in the outcome as failed items.
func (s *Service) AnalyzeBatch(ctx context.Context, paths []string) (*BatchOutcome, error) {
	inputs := make([]engine.Input, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				inputs[i] = engine.Input{Name: filepath.Base(path), ExtractErr: err}
				return nil
			}
			in, err := s.collect(path)
			if err != nil {
				inputs[i] = engine.Input{Name: filepath.Base(path), ExtractErr: err}
				return nil
			}
			inputs[i] = in
			return nil
		})
	}
	_ = g.Wait()

	results := s.engine.AnalyzeBatch(ctx, inputs)

	batch := &BatchOutcome{
		Summary: engine.Summarize(results),
		Results: make([]Outcome, 0, len(results)),
	}
	for i := range results {
		out, err := s.persist(ctx, results[i], inputs[i].Attrs.SHA256)
		if err != nil {
			return nil, err
		}
		s.observe(results[i], 0)
		batch.Results = append(batch.Results, *out)
	}

	s.log.Info("batch analyzed",
		"total", batch.Total, "succeeded", batch.Succeeded, "failed", batch.Failed)
	return batch, nil
}

// Report returns a stored report by ID.
func (s *Service) Report(ctx context.Context, id string) (*store.Report, error) {
	return s.store.Get(ctx, id)
}

// Reports lists stored reports.
func (s *Service) Reports(ctx context.Context, opts store.ListOptions) ([]store.Report, error) {
	return s.store.List(ctx, opts)
}

// collect gathers filesystem attributes and raw document fields for
// one path. An unreadable file is an error; a readable file with a
// broken document body yields an input carrying the extraction error.
func (s *Service) collect(path string) (engine.Input, error) {
	format, err := metadata.FormatForPath(path)
	if err != nil {
		return engine.Input{}, err
	}

	attrs, err := extract.Attributes(path)
	if err != nil {
		return engine.Input{}, err
	}

	raw, extractErr := extract.Document(path, format)
	return engine.Input{
		Name:       filepath.Base(path),
		Attrs:      attrs,
		Format:     format,
		Document:   raw,
		ExtractErr: extractErr,
	}, nil
}

// persist stores one result and returns the outcome with its report ID.
func (s *Service) persist(ctx context.Context, result engine.Result, sha256 string) (*Outcome, error) {
	out := &Outcome{ID: uuid.NewString(), Result: result}

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	format := ""
	if result.Record != nil {
		format = string(result.Record.Document.Format)
	}
	rep := &store.Report{
		ID:        out.ID,
		Filename:  result.Name,
		Format:    format,
		SHA256:    sha256,
		RiskScore: result.RiskScore,
		RiskLevel: string(result.RiskLevel),
		FlagCount: len(result.Flags),
		Failed:    result.Failed(),
		CreatedAt: result.AnalyzedAt,
		Result:    payload,
	}
	if err := s.store.Insert(ctx, rep); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) observe(result engine.Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	if result.Failed() {
		s.metrics.Failures.Inc()
		return
	}
	format := string(result.Record.Document.Format)
	s.metrics.Analyses.WithLabelValues(format, string(result.RiskLevel)).Inc()
	for _, f := range result.Flags {
		s.metrics.Flags.WithLabelValues(string(f.Kind), string(f.Severity)).Inc()
	}
	if elapsed > 0 {
		s.metrics.Duration.Observe(elapsed.Seconds())
	}
}
