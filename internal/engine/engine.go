// Package engine is ff's programmatic entry point (spec §1, "The core
// exposes a programmatic entry point taking a parsed expression and
// configuration and producing a stream of results"): it wires the
// Registry, Cache, Evaluator, Walker, and Sink together for one run.
// Grounded on the teacher's cmd/lci/main.go command handlers, which do
// the same kind of top-level wiring (open config, build the indexer,
// drive it, report a summary) before cmd/ff's CLI layer ever sees it.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/eval"
	"github.com/standardbeagle/ff/internal/exprlang"
	"github.com/standardbeagle/ff/internal/providers"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/sink"
	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// Config is everything one Run needs: the search roots, the tokenized
// main and exclusion expressions, every Walker/Sink policy knob from
// spec §6, and the cache/plugin settings loaded from internal/config.
type Config struct {
	Roots         []string
	ExprTokens    []string
	ExcludeTokens []string // --exclude patterns (without hide/skipIgnored, those are separate flags below)

	Hide        bool // -H
	SkipIgnored bool // -I

	FollowSymlinks bool // -L
	OneFileSystem  bool // --mount/--xdev

	MinDepth      int
	MaxDepth      int
	TraverseDepth int

	IgnoreFileNames []string
	NoIgnore        bool
	NoParentIgnore  bool // --no-parent-ignore: walker roots never inherit ignore rules from ancestors

	Workers int
	SI      bool // --si

	CachePath string
	NoCache   bool

	// ExtraProviders are user plugins already resolved to Provider values
	// (spec §9 places "specific plugin implementations" out of the
	// core's scope; loading them from FF_PLUGIN_DIRS is a CLI-layer
	// concern, not this engine's).
	ExtraProviders []registry.Provider
}

// Run executes one search: builds the Registry and Cache, parses and
// binds both expressions, drives the Walker, and feeds every match to a
// Sink, returning the Sink's Summary for exit-code computation (spec §6).
func Run(ctx context.Context, cfg Config, out sink.Config, w sinkWriter) (sink.Summary, error) {
	reg, err := registry.New(append(providers.Core(), cfg.ExtraProviders...))
	if err != nil {
		return sink.Summary{}, err
	}

	c := cache.Disabled()
	if !cfg.NoCache {
		c, err = cache.Open(cfg.CachePath)
		if err != nil {
			return sink.Summary{}, err
		}
		defer c.Close()
	}

	shorthand := exprlang.DefaultShorthand
	mainAST, err := exprlang.ParseTokens(cfg.ExprTokens, shorthand)
	if err != nil {
		return sink.Summary{}, errkit.Wrap(errkit.KindTestSyntax, "engine.Run", "invalid expression", err)
	}

	binder := &eval.Binder{Registry: reg, Now: valtype.ParseOptions{SI: cfg.SI, Now: time.Now()}, Cache: c}
	mainBound, err := binder.Bind(mainAST)
	if err != nil {
		return sink.Summary{}, err
	}

	exclusionBound, err := eval.BuildExclusion(binder, cfg.ExcludeTokens, cfg.Hide, cfg.SkipIgnored, shorthand)
	if err != nil {
		var se *exprlang.SyntaxError
		if errors.As(err, &se) {
			return sink.Summary{}, errkit.Wrap(errkit.KindTestSyntax, "engine.Run", "invalid --exclude test", err)
		}
		return sink.Summary{}, err
	}

	wcfg := walker.Config{
		Roots:           cfg.Roots,
		Workers:         cfg.Workers,
		FollowSymlinks:  cfg.FollowSymlinks,
		OneFileSystem:   cfg.OneFileSystem,
		MinDepth:        cfg.MinDepth,
		MaxDepth:        cfg.MaxDepth,
		TraverseDepth:   cfg.TraverseDepth,
		IgnoreFileNames: cfg.IgnoreFileNames,
		NoIgnore:        cfg.NoIgnore,
	}
	wk := walker.New(wcfg, reg, c, mainBound, exclusionBound)
	results, wait := wk.Walk(ctx)

	s := sink.New(out, w)
	summary, runErr := s.Run(ctx, results)

	if waitErr := wait(); waitErr != nil {
		if runErr == nil {
			return summary, waitErr
		}
		return summary, runErr
	}
	if runErr != nil {
		return summary, runErr
	}
	if out.Fail && summary.Matches == 0 {
		// A plain error: errkit.ExitCode maps it to exit code 1.
		return summary, errors.New("engine.Run: no matches (--fail)")
	}
	return summary, nil
}

// sinkWriter mirrors the unexported writer interface sink.New expects
// (an io.Writer would do, but this keeps the dependency explicit at the
// engine boundary without importing io just for one method).
type sinkWriter interface {
	Write(p []byte) (int, error)
}
