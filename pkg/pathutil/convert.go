// Package pathutil provides path conversion and decomposition helpers
// shared by the Sink's record output and its exec placeholder expansion
// (spec §4.H).
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root
// directory. Falls back to the original path if conversion fails, the
// result would escape the root via "..", or the path is already relative.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// Placeholders is every substring an exec template (`-x`/`-X`) can
// reference (spec §4.H): the full path, its directory, its basename, and
// basename/dirname without extension. `{..}` is the entry's grandparent
// directory — the directory one level further up than `{//}` — by
// analogy with how `{/.}` goes one step further than `{/}`; spec.md lists
// it without defining it further, so this is a documented design choice
// (see DESIGN.md).
type Placeholders struct {
	Full           string // {}
	Dir            string // {//}
	Base           string // {/}
	BaseNoExt      string // {/.}
	NoExt          string // {.}
	GrandparentDir string // {..}
}

// Split decomposes path into every placeholder an exec template may use.
func Split(path string) Placeholders {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	baseNoExt := strings.TrimSuffix(base, ext)
	noExt := strings.TrimSuffix(path, ext)

	return Placeholders{
		Full:           path,
		Dir:            dir,
		Base:           base,
		BaseNoExt:      baseNoExt,
		NoExt:          noExt,
		GrandparentDir: filepath.Dir(dir),
	}
}
