package ignore

import (
	"path/filepath"
	"strings"
)

// Stack is the per-walk, per-directory-branch stack of rulesets spec
// §4.I describes: one frame per ancestor directory that contributed at
// least one ignore file, innermost (deepest) last. A Walker worker clones
// its parent directory's stack and pushes a frame onto the copy when it
// descends into a directory with its own ignore files, so no frame is
// ever popped during a walk — the push-on-descent shape of the teacher's
// directory-recursion in internal/config, here generalized from one
// merged pattern list to a real stack.
type Stack struct {
	frames []frame
}

type frame struct {
	dir       string
	rulesets  []*Ruleset
}

// NewStack builds an empty stack; callers push the root's frame (if any)
// before starting the walk.
func NewStack() *Stack { return &Stack{} }

// Push adds a directory's rulesets (possibly empty) as the new innermost
// frame.
func (s *Stack) Push(dir string, rulesets []*Ruleset) {
	s.frames = append(s.frames, frame{dir: dir, rulesets: rulesets})
}

// Pop removes the innermost frame, called when the walker finishes a
// directory's subtree.
func (s *Stack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Depth reports how many frames are currently pushed, for use with
// TruncateTo.
func (s *Stack) Depth() int { return len(s.frames) }

// Clone returns an independent copy whose frame slice shares no backing
// array with s, safe to Push onto from a concurrent goroutine while
// sibling branches clone and extend the same parent independently (spec
// §4.G's worker pool visits sibling directories concurrently, so a single
// shared, mutated-in-place Stack cannot represent every branch's view at
// once — each branch clones its parent's view instead).
func (s *Stack) Clone() *Stack {
	frames := make([]frame, len(s.frames))
	copy(frames, s.frames)
	return &Stack{frames: frames}
}

// TruncateTo pops frames until only n remain.
func (s *Stack) TruncateTo(n int) {
	if n < len(s.frames) {
		s.frames = s.frames[:n]
	}
}

// Match reports whether absPath (an absolute path) is ignored given every
// frame pushed so far, and if so which ignore file made the final
// decision (spec §4.I, "the path to the winning ignore file"). Frames are
// consulted outermost-to-innermost so a more specific (deeper) ignore
// file can override a parent's pattern, matching gitignore's rule that a
// closer .gitignore takes precedence.
func (s *Stack) Match(absPath string, isDir bool) (ignored bool, winningFile string) {
	for _, fr := range s.frames {
		rel, err := filepath.Rel(fr.dir, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, rs := range fr.rulesets {
			for _, p := range rs.Patterns {
				if !p.Matches(rel, isDir) {
					continue
				}
				ignored = !p.Negate
				winningFile = rs.File
			}
		}
	}
	if !ignored {
		return false, ""
	}
	return true, winningFile
}
