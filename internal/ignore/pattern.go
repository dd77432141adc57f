// Package ignore implements ff's gitignore-style ignore engine (spec
// §4.I): pattern parsing and matching are adapted directly from the
// teacher's internal/config/gitignore.go (GitignoreParser), generalized
// from a single merged pattern list into a Stack of per-directory
// rulesets and onto doublestar for the `**`-flavored glob operator.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// patternType classifies a pattern for fast-path matching, same
// taxonomy as the teacher's PatternType.
type patternType int

const (
	patternExact patternType = iota
	patternPrefix
	patternSuffix
	patternDoublestar
	patternWildcard
)

// Pattern is one parsed line of an ignore file.
type Pattern struct {
	Raw       string
	Negate    bool
	Directory bool
	Absolute  bool

	kind   patternType
	prefix string
	suffix string
}

// ParsePattern parses a single ignore-file line, already trimmed of
// whitespace, comments, and blank lines by the caller.
func ParsePattern(line string) Pattern {
	p := Pattern{}

	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}
	p.Raw = line
	p.kind, p.prefix, p.suffix = classify(line)
	return p
}

func classify(pattern string) (patternType, string, string) {
	if strings.Contains(pattern, "**") {
		return patternDoublestar, "", ""
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return patternExact, pattern, pattern
	}
	if strings.Contains(pattern, "*") && !strings.ContainsAny(pattern, "?[") {
		if strings.HasPrefix(pattern, "*") && !strings.Contains(pattern[1:], "*") {
			return patternSuffix, "", pattern[1:]
		}
		if strings.HasSuffix(pattern, "*") && !strings.Contains(pattern[:len(pattern)-1], "*") {
			return patternPrefix, pattern[:len(pattern)-1], ""
		}
	}
	return patternWildcard, "", ""
}

// matchSegment reports whether a single matched segment (the full
// relative path for non-directory patterns, or any suffix component for
// relative ones) satisfies the pattern.
func (p Pattern) matchSegment(segment string) bool {
	switch p.kind {
	case patternExact:
		return p.prefix == segment
	case patternPrefix:
		return strings.HasPrefix(segment, p.prefix)
	case patternSuffix:
		return strings.HasSuffix(segment, p.suffix)
	case patternDoublestar:
		ok, _ := doublestar.Match(p.Raw, segment)
		return ok
	default:
		ok, _ := filepath.Match(p.Raw, segment)
		return ok
	}
}

// Matches reports whether the pattern applies to relPath (already
// slash-normalized and relative to the ignore file's own directory, per
// spec §4.I's "leading `/` anchors against the path attribute from its
// start" rule).
func (p Pattern) Matches(relPath string, isDir bool) bool {
	if p.Directory {
		if isDir && p.matchAnchored(relPath) {
			return true
		}
		// A file (or subdirectory) inside a directory the pattern names
		// is also covered (spec: directory markers exclude their whole
		// subtree).
		prefix := p.effectivePrefix()
		return strings.HasPrefix(relPath, prefix+"/") || p.matchAnchored(relPath)
	}
	return p.matchAnchored(relPath)
}

func (p Pattern) effectivePrefix() string {
	if p.kind == patternExact {
		return p.prefix
	}
	return p.Raw
}

func (p Pattern) matchAnchored(relPath string) bool {
	if p.Absolute {
		return p.matchSegment(relPath)
	}
	if p.matchSegment(relPath) {
		return true
	}
	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if p.matchSegment(strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}
