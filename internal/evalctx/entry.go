// Package evalctx implements the per-entry Context (spec §4.E): a memo
// table over attribute → Value | error-marker that mediates every
// provider call and Cache lookup for one filesystem entry.
package evalctx

import (
	"os"
	"path/filepath"
)

// Entry is the concrete filesystem object a Context is built over.
// Identity is its absolute path (spec §3). It satisfies
// registry.Entry plus the extra (mtime, raw mode) accessors the Cache's
// key and providers that need POSIX permission bits require.
type Entry struct {
	path    string
	isDir   bool
	size    int64
	mode    os.FileMode
	mtimeNs int64

	// depth, ignored, ignoreFile, and the root device are populated by the
	// Walker as it descends (spec §4.G); the depth, ignore, and
	// samefilesystem attributes read them back off the Entry rather than
	// recomputing traversal state they have no other way to reach.
	depth      int
	ignored    bool
	ignoreFile string

	rootDev    uint64
	hasRootDev bool
}

// NewEntry builds an Entry from a path already stat'ed by the Walker (or,
// for file-reference resolution, from a throw-away os.Lstat call).
func NewEntry(path string, info os.FileInfo) Entry {
	return Entry{
		path:    path,
		isDir:   info.IsDir(),
		size:    info.Size(),
		mode:    info.Mode(),
		mtimeNs: info.ModTime().UnixNano(),
	}
}

// StatEntry lstats path directly, for one-off contexts such as the
// Evaluator's file-reference resolution (spec §4.F).
func StatEntry(path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return NewEntry(abs, info), nil
}

func (e Entry) Path() string { return e.path }

// Info satisfies registry.Entry: isDir, size, and raw mode bits (including
// the type bits, spec §4.A's filetype attribute needs them).
func (e Entry) Info() (isDir bool, size int64, mode uint32) {
	return e.isDir, e.size, uint32(e.mode)
}

func (e Entry) MtimeNs() int64    { return e.mtimeNs }
func (e Entry) IsDir() bool       { return e.isDir }
func (e Entry) Size() int64       { return e.size }
func (e Entry) Mode() os.FileMode { return e.mode }

// WithDepth returns a copy of e carrying its traversal depth (root = 0),
// for the depth provider's `file.depth` attribute.
func (e Entry) WithDepth(depth int) Entry {
	e.depth = depth
	return e
}

// WithIgnoreState returns a copy of e carrying whether the ignore stack
// matched it and, if so, the winning ignore file's path — for the ignore
// provider's `ignore.matched`/`ignore.path` attributes (spec §4.I).
func (e Entry) WithIgnoreState(matched bool, file string) Entry {
	e.ignored = matched
	e.ignoreFile = file
	return e
}

func (e Entry) Depth() int                  { return e.depth }
func (e Entry) IgnoreState() (bool, string) { return e.ignored, e.ignoreFile }

// WithRootDevice returns a copy of e carrying the device id of the root it
// was discovered under, for the file provider's `file.samefilesystem`
// attribute (spec §4.G's --mount policy needs the same comparison the
// attribute exposes to expressions).
func (e Entry) WithRootDevice(dev uint64, ok bool) Entry {
	e.rootDev = dev
	e.hasRootDev = ok
	return e
}

func (e Entry) RootDevice() (uint64, bool) { return e.rootDev, e.hasRootDev }
