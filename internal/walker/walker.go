// Package walker implements ff's parallel directory traversal (spec
// §4.G): a fixed-size worker pool drains an unbounded directory queue
// (every discovered subdirectory is just another task competing for the
// same N workers) but locally DFS within a worker (one task fully
// stats, filters, and evaluates every child of its directory before the
// worker takes another task).
//
// Grounded on the teacher's internal/indexing/pipeline_scanner.go
// (os.ReadDir-driven traversal, symlink-cycle tracking via a visited-path
// set, fast exclude/include pre-filtering before the expensive checks)
// generalized from a single-producer scan-and-index pipeline into a
// bounded fan-out pool. Workers are plain errgroup goroutines, but
// dispatch goes through workQueue rather than errgroup.Group.Go itself:
// errgroup.Group.SetLimit throttles Go by blocking the caller once the
// limit is reached, so a worker that recursively calls a limited g.Go
// for a child directory would block while still holding its own slot —
// with one worker and any subdirectory, a deterministic hang. workQueue
// decouples "found more work" from "a goroutine starts running it", so
// a worker can queue any number of subdirectories and immediately move
// on to its next task. errgroup.WithContext is still used for what it's
// good at: propagating the first fatal error as cancellation.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/debug"
	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/eval"
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/ignore"
	"github.com/standardbeagle/ff/internal/registry"
)

// Config is every traversal policy the Walker's per-directory procedure
// consults (spec §4.G steps 1-7). The zero Config is a safe default: no
// root (caller must set one), one worker per CPU, and every depth field
// unbounded — a literal depth limit of 0 would mean "nothing below the
// root," a case nobody asks for, so 0 doubles as the sentinel for "no
// limit" on MaxDepth and TraverseDepth rather than a separate constant.
type Config struct {
	Roots []string

	// Workers is the worker pool size; 0 means runtime.NumCPU() (spec
	// §4.G, "default: one per CPU").
	Workers int

	FollowSymlinks bool // -L
	OneFileSystem  bool // --mount

	// MinDepth/MaxDepth filter which entries reach the Sink (spec §4.G
	// step 4, "-d ranges"). MinDepth's zero value already means "no
	// minimum" since depth never goes negative; MaxDepth 0 means
	// unbounded.
	MinDepth int
	MaxDepth int

	// TraverseDepth caps recursion itself (spec §4.G step 4, "--depth
	// upper bound"); 0 means unbounded.
	TraverseDepth int

	// IgnoreFileNames overrides the default ignore-file name set;
	// NoIgnore disables ignore-file consultation entirely (spec §4.I).
	IgnoreFileNames []string
	NoIgnore        bool
}

func (c Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Result is one Entry the main expression matched, paired with the
// Context it was evaluated under so a Sink can read further attributes
// (sort keys, record fields, exec placeholders) without recomputation.
type Result struct {
	Entry evalctx.Entry
	Ctx   *evalctx.Context
}

// Walker drives one traversal run over an immutable, already-bound
// expression pair: the main expression and the exclusion expression
// (spec §4.F, "a separate evaluator instance").
type Walker struct {
	cfg       Config
	reg       *registry.Registry
	cache     *cache.Cache
	main      eval.Bound
	exclusion eval.Bound

	visited sync.Map // real path -> struct{}, symlink-cycle guard
}

// New builds a Walker. main and exclusion must already be bound (spec
// §4.F's binding happens once, before any walking begins).
func New(cfg Config, reg *registry.Registry, c *cache.Cache, main, exclusion eval.Bound) *Walker {
	return &Walker{cfg: cfg, reg: reg, cache: c, main: main, exclusion: exclusion}
}

// dirTask is one directory still to be scanned.
type dirTask struct {
	path       string
	depth      int
	stack      *ignore.Stack
	rootDev    uint64
	hasRootDev bool
}

// workQueue is an unbounded FIFO of dirTasks shared by a fixed pool of
// workers. Pushing never blocks, so a worker that discovers N
// subdirectories queues all of them and immediately takes its next
// task instead of stalling while holding a worker slot.
type workQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	tasks       []dirTask
	outstanding int // tasks queued or currently being processed
	closed      bool
}

// newWorkQueue seeds outstanding with pending, the number of root
// launches that have not yet pushed (or decided not to push) their
// task; without this a worker could observe an empty, zero-outstanding
// queue and exit before the first root is even stat'ed.
func newWorkQueue(pending int) *workQueue {
	q := &workQueue{outstanding: pending}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) push(t dirTask) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.outstanding++
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a task is ready, the queue has fully drained
// (nothing queued and nothing outstanding), or shutdown is called.
func (q *workQueue) pop() (dirTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 {
		if q.closed || q.outstanding == 0 {
			return dirTask{}, false
		}
		q.cond.Wait()
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// done marks one previously-pushed task (or one unit of the initial
// pending count) as finished. Call it exactly once per push, whether
// or not the task's processing succeeded.
func (q *workQueue) done() {
	q.mu.Lock()
	q.outstanding--
	drained := q.outstanding == 0
	q.mu.Unlock()
	if drained {
		q.cond.Broadcast()
	}
}

// shutdown wakes every blocked pop so workers can exit once the
// traversal is cancelled by the first fatal error.
func (q *workQueue) shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Walk starts the traversal and returns a channel of matches plus a Wait
// function. Wait blocks until every worker has finished (or the first
// fatal error cancelled the run) and returns that fatal error, if any
// (spec §4.G, "unrecoverable errors... cause the walker to drain and
// terminate"). Per-entry errors (ENOENT, EPERM) never reach Wait — they
// are debug-logged and skipped (spec §4.G, "Failure handling").
func (w *Walker) Walk(ctx context.Context) (<-chan Result, func() error) {
	out := make(chan Result)
	g, gctx := errgroup.WithContext(ctx)
	q := newWorkQueue(len(w.cfg.Roots))

	for _, root := range w.cfg.Roots {
		root := root
		g.Go(func() error {
			return w.walkRoot(gctx, q, root, out)
		})
	}

	// Cancellation (the first fatal error from any goroutine in g, or
	// ctx itself being cancelled) must wake every worker blocked in
	// q.pop, not just stop new roots from launching.
	go func() {
		<-gctx.Done()
		q.shutdown()
	}()

	for i := 0; i < w.cfg.workerCount(); i++ {
		g.Go(func() error {
			return w.worker(gctx, q, out)
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(out)
		close(done)
	}()

	wait := func() error {
		<-done
		return g.Wait()
	}
	return out, wait
}

// walkRoot resolves one root and hands it to the queue as a single
// dirTask (or, for a file root, evaluates it directly); it never
// processes a directory's children itself, so root launches never
// compete with workers for pool slots.
func (w *Walker) walkRoot(ctx context.Context, q *workQueue, root string, out chan<- Result) error {
	defer q.done()

	abs, err := filepath.Abs(root)
	if err != nil {
		return errkit.WithPath(errkit.KindWalk, "walker.Walk", "cannot resolve root", root, err)
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return errkit.WithPath(errkit.KindWalk, "walker.Walk", "cannot stat root", abs, err)
	}
	if !info.IsDir() {
		// A root that names a single file: evaluate it directly, spec
		// §4.G's per-directory procedure has no special case for this,
		// but a bare file root must still produce a Result.
		dev, hasDev := deviceID(info)
		entry := evalctx.NewEntry(abs, info).WithDepth(0).WithRootDevice(dev, hasDev)
		return w.emitIfMatch(ctx, entry, out)
	}

	dev, hasDev := deviceID(info)
	stack := ignore.NewStack()
	if !w.cfg.NoIgnore {
		frames, ferr := ignore.LoadFrame(abs, w.cfg.IgnoreFileNames)
		if ferr != nil {
			debug.Walk(abs, ferr)
		} else if len(frames) > 0 {
			stack.Push(abs, frames)
		}
	}

	q.push(dirTask{path: abs, depth: 0, stack: stack, rootDev: dev, hasRootDev: hasDev})
	return nil
}

// worker drains the queue until it is told to stop, either because the
// whole traversal finished or a sibling worker's fatal error cancelled
// it.
func (w *Walker) worker(ctx context.Context, q *workQueue, out chan<- Result) error {
	for {
		t, ok := q.pop()
		if !ok {
			return nil
		}
		err := w.processDir(ctx, q, t.path, t.depth, t.stack, t.rootDev, t.hasRootDev, out)
		q.done()
		if err != nil {
			return err
		}
	}
}

// processDir implements spec §4.G's per-directory procedure for one
// directory, fully, before this worker is free to take another task.
// Subdirectories it finds are pushed onto q, not spawned directly.
func (w *Walker) processDir(ctx context.Context, q *workQueue, dir string, depth int, parentStack *ignore.Stack, rootDev uint64, hasRootDev bool, out chan<- Result) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	children, err := os.ReadDir(dir) // step 1: stat-list the directory
	if err != nil {
		debug.Walk(dir, err)
		return nil
	}

	for _, child := range children {
		childPath := filepath.Join(dir, child.Name())

		info, err := child.Info()
		if err != nil {
			debug.Walk(childPath, err)
			continue
		}

		isSymlink := info.Mode()&os.ModeSymlink != 0
		traverseInfo := info
		if isSymlink {
			if !w.cfg.FollowSymlinks {
				// Not followed: the entry itself is a symlink leaf, never
				// a traversal target.
			} else if resolved, serr := os.Stat(childPath); serr != nil {
				debug.Walk(childPath, serr) // broken symlink: skip traversal, still a leaf below
			} else {
				traverseInfo = resolved
			}
		}

		entry := evalctx.NewEntry(childPath, info).WithDepth(depth + 1).WithRootDevice(rootDev, hasRootDev)

		childStack := parentStack
		ignored, ignoreFile := false, ""
		if !w.cfg.NoIgnore {
			ignored, ignoreFile = parentStack.Match(childPath, traverseInfo.IsDir())
		}
		entry = entry.WithIgnoreState(ignored, ignoreFile)

		excluded, err := w.isExcluded(entry)
		if err != nil {
			return err // fatal: exclusion evaluation is a caller bug, not a per-entry failure
		}

		isDir := traverseInfo.IsDir() && (!isSymlink || w.cfg.FollowSymlinks)

		// step 3: apply exclusion — excluded directories are never queued
		if excluded && isDir {
			continue
		}

		withinOutputDepth := w.withinOutputDepth(depth + 1)

		// step 6: evaluate the main expression (only entries the
		// exclusion evaluator let through, and only once — whether or
		// not the entry is ultimately queued for traversal).
		if !excluded && withinOutputDepth {
			if err := w.emitIfMatch(ctx, entry, out); err != nil {
				return err
			}
		}

		if !isDir {
			continue
		}

		// step 5: one-file-system policy
		if w.cfg.OneFileSystem && hasRootDev {
			if childDev, ok := deviceID(traverseInfo); ok && childDev != rootDev {
				continue
			}
		}

		// symlink-cycle guard: only meaningful once symlinks are followed
		if isSymlink && w.cfg.FollowSymlinks {
			real, err := filepath.EvalSymlinks(childPath)
			if err != nil {
				debug.Walk(childPath, err)
				continue
			}
			if _, seen := w.visited.LoadOrStore(real, struct{}{}); seen {
				continue
			}
		}

		// step 4 (traversal half): stop recursing once the upper depth
		// bound is reached, but note the entry itself was already
		// evaluated above.
		if w.cfg.TraverseDepth > 0 && depth+1 >= w.cfg.TraverseDepth {
			continue
		}

		if !w.cfg.NoIgnore {
			childFrames, ferr := ignore.LoadFrame(childPath, w.cfg.IgnoreFileNames)
			if ferr != nil {
				debug.Walk(childPath, ferr)
			} else if len(childFrames) > 0 {
				childStack = parentStack.Clone()
				childStack.Push(childPath, childFrames)
			}
		}

		q.push(dirTask{path: childPath, depth: depth + 1, stack: childStack, rootDev: rootDev, hasRootDev: hasRootDev})
	}
	return nil
}

func (w *Walker) withinOutputDepth(depth int) bool {
	if depth < w.cfg.MinDepth {
		return false
	}
	if w.cfg.MaxDepth > 0 && depth > w.cfg.MaxDepth {
		return false
	}
	return true
}

func (w *Walker) isExcluded(entry evalctx.Entry) (bool, error) {
	if w.exclusion == nil {
		return false, nil
	}
	ctx := evalctx.New(entry, w.reg, w.cache)
	return eval.Evaluate(ctx, w.exclusion)
}

func (w *Walker) emitIfMatch(ctx context.Context, entry evalctx.Entry, out chan<- Result) error {
	ectx := evalctx.New(entry, w.reg, w.cache)
	matched, err := eval.Evaluate(ectx, w.main)
	if err != nil {
		return err
	}
	if !matched {
		return nil
	}
	select {
	case out <- Result{Entry: entry, Ctx: ectx}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
