package sink

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/ff/internal/debug"
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/walker"
	"github.com/standardbeagle/ff/pkg/pathutil"
)

// HaltPolicy is `--halt`'s never|soon|now setting (spec §5).
type HaltPolicy int

const (
	HaltNever HaltPolicy = iota
	HaltSoon
	HaltNow
)

// ExecSpec configures `-x`/`-X` dispatch (spec §4.H).
type ExecSpec struct {
	Command string
	Args    []string // raw template tokens, substituted per spec §4.H
	Batch   bool      // -X: run once over every result; -x: run once per result
	Halt    HaltPolicy
	Workers int // 0 means runtime.NumCPU(), matching the walker's default
}

func (e ExecSpec) workerCount() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

// templateHasPlaceholder reports whether any token in args contains a
// substitution (spec §4.H: "a template with no placeholders has the full
// path appended as the sole positional argument").
func templateHasPlaceholder(args []string) bool {
	for _, a := range args {
		if _, found := expandTemplate(a, pathutil.Placeholders{}, nil); found {
			return true
		}
	}
	return false
}

// expandTemplate substitutes every `{...}` placeholder in tok. Doubled
// braces `{{`/`}}` render as literal `{`/`}`. ctx may be nil when the
// caller (templateHasPlaceholder) only wants to detect presence, not
// render attribute substitutions.
func expandTemplate(tok string, ph pathutil.Placeholders, ctx *evalctx.Context) (string, bool) {
	var b strings.Builder
	found := false
	for i := 0; i < len(tok); {
		switch {
		case i+1 < len(tok) && tok[i] == '{' && tok[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case i+1 < len(tok) && tok[i] == '}' && tok[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case tok[i] == '{':
			end := strings.IndexByte(tok[i:], '}')
			if end < 0 {
				b.WriteByte(tok[i])
				i++
				continue
			}
			inner := tok[i+1 : i+end]
			b.WriteString(resolvePlaceholder(inner, ph, ctx))
			found = true
			i += end + 1
		default:
			b.WriteByte(tok[i])
			i++
		}
	}
	return b.String(), found
}

func resolvePlaceholder(inner string, ph pathutil.Placeholders, ctx *evalctx.Context) string {
	switch inner {
	case "":
		return ph.Full
	case "/":
		return ph.Base
	case "//":
		return ph.Dir
	case ".":
		return ph.NoExt
	case "/.":
		return ph.BaseNoExt
	case "..":
		return ph.GrandparentDir
	default:
		if ctx == nil {
			return ""
		}
		plugin, attr := "", inner
		if idx := strings.IndexByte(inner, '.'); idx >= 0 {
			plugin, attr = inner[:idx], inner[idx+1:]
		}
		return ctx.Placeholder(plugin, attr)
	}
}

// buildArgv expands every template token against one Result, appending
// the full path as a trailing positional argument when the template has
// no placeholders at all (spec §4.H).
func buildArgv(spec *ExecSpec, r walker.Result) []string {
	ph := pathutil.Split(r.Entry.Path())
	argv := make([]string, 0, len(spec.Args)+1)
	anyPlaceholder := false
	for _, a := range spec.Args {
		expanded, found := expandTemplate(a, ph, r.Ctx)
		anyPlaceholder = anyPlaceholder || found
		argv = append(argv, expanded)
	}
	if !anyPlaceholder {
		argv = append(argv, r.Entry.Path())
	}
	return argv
}

// runOne runs spec.Command with argv, returning whether it succeeded.
func runOne(ctx context.Context, command string, argv []string) bool {
	cmd := exec.CommandContext(ctx, command, argv...)
	if err := cmd.Run(); err != nil {
		debug.Log("exec", "%s %v: %v", command, argv, err)
		return false
	}
	return true
}

// execState tracks halt-policy bookkeeping shared across concurrent
// dispatches (spec §5's "--halt soon|now" cancellation semantics).
type execState struct {
	halt     HaltPolicy
	stopNew  atomic.Bool // halt=soon: stop launching new subprocesses
	cancel   context.CancelFunc
	runs     atomic.Int64
	failures atomic.Int64
}

func newExecState(halt HaltPolicy, cancel context.CancelFunc) *execState {
	return &execState{halt: halt, cancel: cancel}
}

func (e *execState) shouldDispatch() bool { return !e.stopNew.Load() }

func (e *execState) recordResult(ok bool) {
	e.runs.Add(1)
	if ok {
		return
	}
	e.failures.Add(1)
	switch e.halt {
	case HaltSoon:
		e.stopNew.Store(true)
	case HaltNow:
		e.stopNew.Store(true)
		if e.cancel != nil {
			e.cancel()
		}
	}
}

func (s *Sink) runExec(ctx context.Context, results <-chan walker.Result) (Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	st := newExecState(s.cfg.Exec.Halt, cancel)

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.cfg.Exec.workerCount())

	matches := 0
	for r := range results {
		matches++
		if !st.shouldDispatch() {
			continue
		}
		r := r
		argv := buildArgv(s.cfg.Exec, r)
		g.Go(func() error {
			// Re-check after SetLimit's admission wait: a dispatch queued
			// before a failure landed may only be admitted once that
			// failure has already flipped the halt=soon/now flag.
			if !st.shouldDispatch() {
				return nil
			}
			st.recordResult(runOne(gctx, s.cfg.Exec.Command, argv))
			return nil
		})
	}
	_ = g.Wait()

	return Summary{Matches: matches, ExecRuns: int(st.runs.Load()), ExecFailures: int(st.failures.Load())}, nil
}

func (s *Sink) runExecBuffered(ctx context.Context, results []walker.Result) (Summary, error) {
	if s.cfg.Exec.Batch {
		return s.runBatchExec(ctx, results)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	st := newExecState(s.cfg.Exec.Halt, cancel)

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.cfg.Exec.workerCount())

	for _, r := range results {
		if !st.shouldDispatch() {
			break
		}
		r := r
		argv := buildArgv(s.cfg.Exec, r)
		g.Go(func() error {
			if !st.shouldDispatch() {
				return nil
			}
			st.recordResult(runOne(gctx, s.cfg.Exec.Command, argv))
			return nil
		})
	}
	_ = g.Wait()

	return Summary{Matches: len(results), ExecRuns: int(st.runs.Load()), ExecFailures: int(st.failures.Load())}, nil
}

// runBatchExec implements `-X`: one process, every matched path folded in
// (spec §4.H, "-X runs once with all results concatenated"). A bare `{}`
// token is spliced into one argv element per result; any other
// placeholder resolves against the first result only — spec.md does not
// define multi-entry semantics for a non-bare placeholder, so this is a
// documented design choice (see DESIGN.md).
func (s *Sink) runBatchExec(ctx context.Context, results []walker.Result) (Summary, error) {
	spec := s.cfg.Exec
	sum := Summary{Matches: len(results)}
	if len(results) == 0 {
		return sum, nil
	}

	hasPlaceholder := templateHasPlaceholder(spec.Args)
	var argv []string
	if !hasPlaceholder {
		argv = append(argv, spec.Args...)
		for _, r := range results {
			argv = append(argv, r.Entry.Path())
		}
	} else {
		first := results[0]
		ph := pathutil.Split(first.Entry.Path())
		for _, a := range spec.Args {
			if a == "{}" {
				for _, r := range results {
					argv = append(argv, r.Entry.Path())
				}
				continue
			}
			expanded, _ := expandTemplate(a, ph, first.Ctx)
			argv = append(argv, expanded)
		}
	}

	ok := runOne(ctx, spec.Command, argv)
	sum.ExecRuns = 1
	if !ok {
		sum.ExecFailures = 1
	}
	return sum, nil
}
