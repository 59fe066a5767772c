// Package engine runs the analysis pipeline: normalize, cross-check,
// evaluate rules, aggregate risk. The engine is stateless and every
// result is built fresh per invocation.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"veridoc/internal/crosscheck"
	"veridoc/internal/metadata"
	"veridoc/internal/risk"
	"veridoc/internal/rules"
)

// Pipeline stages recorded in Result.Errors.
const (
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageBatch     = "batch"
)

// DefaultMaxConcurrency bounds batch workers when unconfigured.
const DefaultMaxConcurrency = 4

// Input is the per-item metadata input: filesystem attributes plus
// the raw per-format extraction output, both supplied by external
// collaborators. ExtractErr carries a collaborator failure to be
// recorded rather than propagated; Document may still hold whatever
// fields did parse.
type Input struct {
	Name       string
	Attrs      metadata.FilesystemMeta
	Format     metadata.Format
	Document   map[string]string
	ExtractErr error
}

// Result is the complete outcome for one input. Flag order follows
// rule evaluation order and is stable across runs for the same input
// and clock.
type Result struct {
	Name       string            `json:"name"`
	Record     *metadata.Record  `json:"record,omitempty"`
	CrossCheck crosscheck.Facts  `json:"cross_check"`
	Flags      []rules.Flag      `json:"flags,omitempty"`
	RiskScore  int               `json:"risk_score"`
	RiskLevel  risk.Level        `json:"risk_level,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
}

// Failed reports whether the pipeline did not complete for this item.
// Items with a record but recorded errors were analyzed on partial
// data and count as succeeded.
func (r *Result) Failed() bool {
	return r.Record == nil
}

// Summary are batch counters. Total always equals Succeeded+Failed.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts batch outcomes.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for i := range results {
		if results[i].Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// Options configure an Engine. Zero values fall back to defaults.
type Options struct {
	// Tolerance is the cross-check mismatch tolerance.
	Tolerance time.Duration

	// Params are the rule thresholds; the Now field is ignored, the
	// engine stamps the clock per evaluation.
	Params rules.Params

	// Thresholds are the risk band boundaries.
	Thresholds risk.Thresholds

	// MaxConcurrency bounds concurrent batch items.
	MaxConcurrency int

	// Now is the injectable clock.
	Now func() time.Time
}

// Engine is safe for concurrent use; it holds no mutable state.
type Engine struct {
	norm           *metadata.Normalizer
	rules          []rules.Rule
	params         rules.Params
	agg            risk.Aggregator
	tolerance      time.Duration
	maxConcurrency int
	now            func() time.Time
}

// New builds an Engine from options.
func New(opts Options) *Engine {
	params := opts.Params
	if params.ExpectedFields == nil {
		params.ExpectedFields = rules.DefaultExpectedFields()
	}
	if params.GenericTokens == nil {
		params.GenericTokens = rules.DefaultGenericTokens()
	}
	if params.StrippedRatio <= 0 {
		params.StrippedRatio = rules.DefaultStrippedRatio
	}
	if params.HighMismatchDelta <= 0 {
		params.HighMismatchDelta = rules.DefaultHighMismatchDelta
	}

	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = crosscheck.DefaultTolerance
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		norm:           metadata.NewNormalizer(),
		rules:          rules.Default(),
		params:         params,
		agg:            risk.NewAggregator(opts.Thresholds),
		tolerance:      tolerance,
		maxConcurrency: maxConcurrency,
		now:            now,
	}
}

// Analyze runs the pipeline for one input. Collaborator failures are
// recorded in the result's error map; a failed normalization
// short-circuits with an empty flag set rather than a fabricated
// score. Deterministic for a fixed input and clock.
func (e *Engine) Analyze(in Input) Result {
	res := Result{
		Name:       in.Name,
		AnalyzedAt: e.now().UTC(),
	}
	if in.ExtractErr != nil {
		res.setError(StageExtract, in.ExtractErr.Error())
		if in.Document == nil {
			// Nothing parsed; analyzing pure absence would fabricate
			// stripping flags for a file we never read.
			return res
		}
	}

	rec, err := e.norm.Normalize(in.Attrs, in.Format, in.Document)
	if err != nil {
		res.setError(StageNormalize, err.Error())
		return res
	}
	res.Record = rec
	res.CrossCheck = crosscheck.Compare(rec, e.tolerance)

	params := e.params
	params.Now = res.AnalyzedAt
	for _, rule := range e.rules {
		res.Flags = append(res.Flags, rule(rec, res.CrossCheck, params)...)
	}

	res.RiskScore, res.RiskLevel = e.agg.Aggregate(res.Flags)
	return res
}

// AnalyzeBatch runs the pipeline over every input with bounded
// concurrency. One item's failure never aborts its siblings; every
// input receives exactly one result, in input order.
func (e *Engine) AnalyzeBatch(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				r := Result{Name: in.Name, AnalyzedAt: e.now().UTC()}
				r.setError(StageBatch, err.Error())
				results[i] = r
				return nil
			}
			results[i] = e.Analyze(in)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()
	return results
}

func (r *Result) setError(stage, msg string) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[stage] = msg
}
