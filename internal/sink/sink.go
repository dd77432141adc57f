// Package sink implements ff's output stage (spec §4.H): record, JSON,
// count, and exec modes, result limiting, and sort ordering. Grounded on
// the teacher's internal/mcp response-shape dispatch (FilesOnlyResponse/
// CountOnlyResponse/CompactFormatter in search_output_modes_test.go) —
// one struct per response shape, one formatter dispatching on a mode enum
// — generalized here from a fixed pair of MCP response shapes to the
// four modes spec §4.H names, and from the teacher's own worker-pool
// pattern (errgroup, same as internal/walker) for -x's per-entry fan-out.
package sink

import (
	"context"
	"sync"

	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// Mode is one of the four output modes spec §4.H says are mutually
// exclusive ("exactly one per invocation").
type Mode int

const (
	ModeRecord Mode = iota
	ModeJSON        // --json: one array
	ModeJSONL       // --jsonl/--ndjson: one object per line
	ModeCount       // --count
	ModeExec        // -x/-X
)

// OutputField is one resolved attribute plus its rendering modifier, for
// `-o`, `--count`, and `-S`'s attribute lists alike.
type OutputField struct {
	Resolved registry.Resolved
	Modifier valtype.Modifier
	Label    string // the user-facing name (as typed, qualified or not)
}

// Config is every output-shaping option spec §4.H and §6 name.
type Config struct {
	Mode Mode

	// Output is the `-o` attribute list (Record/JSON/JSONL). Defaults to
	// a single `file.path` field (spec §8 scenario 1 prints bare relative
	// paths with no -o given) when empty.
	Output  []OutputField
	Sep     string // --sep, default " "
	All     bool   // --all: never suppress a record for a null field
	NullSep bool   // -0: NUL-terminate records instead of newline

	Color ColorMode // -C never|auto|always

	// Count is the `--count` attribute list. Empty means the spec's
	// documented default: file.size,file.type.
	Count []OutputField

	// Sort is the `-S` attribute list; empty means unsorted (worker
	// order). Reverse is `-R`.
	Sort    []OutputField
	Reverse bool

	// Limit is `-l`/`-1`; nil means unbounded.
	Limit *LimitSpec

	Exec *ExecSpec // non-nil for ModeExec

	Fail bool // --fail: exit 1 on zero matches regardless of mode
}

// Summary reports what a Run produced, for the caller to compute an exit
// code from (spec §6's exit-code table; §7's "exec failures ... exit code
// 3 at the end").
type Summary struct {
	Matches      int
	ExecRuns     int
	ExecFailures int
}

// Sink drains a Walker's result stream and commits output in one of the
// four modes.
type Sink struct {
	cfg    Config
	out    writer
	colors *lsColors // lazily loaded on first colorized record

	mu sync.Mutex // serializes writes from concurrent -x subprocesses
}

// writer is the minimal io.Writer surface Sink needs, narrowed so tests
// can swap in a *bytes.Buffer or similar without importing io.
type writer interface {
	Write(p []byte) (int, error)
}

func New(cfg Config, out writer) *Sink {
	if cfg.Sep == "" {
		cfg.Sep = " "
	}
	if len(cfg.Output) == 0 {
		cfg.Output = []OutputField{defaultPathField()}
	}
	if len(cfg.Count) == 0 {
		cfg.Count = defaultCountFields()
	}
	return &Sink{cfg: cfg, out: out}
}

func defaultPathField() OutputField {
	return OutputField{
		Resolved: registry.Resolved{Provider: "file", Descriptor: registry.Descriptor{Name: "path", Kind: valtype.KindPath}},
		Label:    "path",
	}
}

func defaultCountFields() []OutputField {
	return []OutputField{
		{Resolved: registry.Resolved{Provider: "file", Descriptor: registry.Descriptor{Name: "size", Kind: valtype.KindSize}}, Label: "size"},
		{Resolved: registry.Resolved{Provider: "file", Descriptor: registry.Descriptor{Name: "type", Kind: valtype.KindFileType}}, Label: "type"},
	}
}

// needsBuffering reports whether Run must collect the full result set
// before emitting anything, rather than streaming per-entry (spec §5,
// "with -S the walker must complete before the sort and therefore before
// any output"). -X also forces buffering: it folds every result into one
// invocation, so it needs the full set up front regardless of sorting.
func (s *Sink) needsBuffering() bool {
	if s.cfg.Mode == ModeExec && s.cfg.Exec != nil && s.cfg.Exec.Batch {
		return true
	}
	return len(s.cfg.Sort) > 0 || s.cfg.Mode == ModeJSON || s.cfg.Mode == ModeCount || s.cfg.Limit != nil
}

// Run drains results until the channel closes or ctx is cancelled,
// committing output per Config.Mode. The returned error is only non-nil
// for a fatal condition (spec §7's "any global error ... aborts"); exec
// subprocess failures are accounted in the returned Summary instead.
func (s *Sink) Run(ctx context.Context, results <-chan walker.Result) (Summary, error) {
	if s.needsBuffering() {
		return s.runBuffered(ctx, results)
	}
	return s.runStreaming(ctx, results)
}

func (s *Sink) runStreaming(ctx context.Context, results <-chan walker.Result) (Summary, error) {
	switch s.cfg.Mode {
	case ModeExec:
		return s.runExec(ctx, results)
	default:
		var sum Summary
		for r := range results {
			if err := s.emitOne(r); err != nil {
				return sum, err
			}
			sum.Matches++
		}
		return sum, nil
	}
}

func (s *Sink) runBuffered(ctx context.Context, results <-chan walker.Result) (Summary, error) {
	var all []walker.Result
	for r := range results {
		all = append(all, r)
	}
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	default:
	}

	if len(s.cfg.Sort) > 0 {
		if err := sortResults(all, s.cfg.Sort, s.cfg.Reverse); err != nil {
			return Summary{}, err
		}
	}
	if s.cfg.Limit != nil {
		all = s.cfg.Limit.Apply(all)
	}

	switch s.cfg.Mode {
	case ModeCount:
		return s.emitCount(all)
	case ModeJSON:
		sum := Summary{Matches: len(all)}
		return sum, s.emitJSONArray(all)
	case ModeExec:
		return s.runExecBuffered(ctx, all)
	default:
		sum := Summary{}
		for _, r := range all {
			if err := s.emitOne(r); err != nil {
				return sum, err
			}
			sum.Matches++
		}
		return sum, nil
	}
}

// emitOne renders a single Result in Record or JSONL mode (Count/JSON
// array/Exec have their own dedicated paths).
func (s *Sink) emitOne(r walker.Result) error {
	switch s.cfg.Mode {
	case ModeJSONL:
		return s.emitJSONLine(r)
	default:
		return s.emitRecord(r)
	}
}

func (s *Sink) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.out.Write(p)
	return err
}

func (s *Sink) lineTerminator() byte {
	if s.cfg.NullSep {
		return 0
	}
	return '\n'
}

// attrError wraps a Registry/Count setup failure as the AttributeError
// (exit 11) spec §6 assigns to an unknown or non-countable attribute.
func attrError(op, msg string) error {
	return errkit.New(errkit.KindAttribute, op, msg)
}
