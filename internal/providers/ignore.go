package providers

import (
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
)

// Ignore is the "ignore" provider (spec §4.I prose + Supplemented
// Features): it never recomputes anything itself, only surfaces the
// ignore-stack decision the Walker already made while descending and
// attached to the Entry via WithIgnoreState. Cost is lowest of any
// provider since it's a field read, not a filesystem call; not cacheable
// since the decision depends on which ignore files are in scope for this
// walk, not on the entry's own (path, mtime, size) identity.
type Ignore struct{}

func (Ignore) Name() string           { return "ignore" }
func (Ignore) Dependencies() []string { return nil }

func (Ignore) Attributes() []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "matched", Kind: valtype.KindBool, Cost: 1, Cacheable: false, Help: "entry is excluded by an in-scope ignore file"},
		{Name: "path", Kind: valtype.KindPath, Cost: 1, Cacheable: false, Help: "ignore file that matched, empty if none"},
	}
}

func (Ignore) Process(entry registry.Entry, attr string, out registry.Setter) error {
	e, ok := entry.(evalctx.Entry)
	if !ok {
		return nil
	}
	matched, file := e.IgnoreState()
	switch attr {
	case "matched":
		out.Set("matched", valtype.NewBool(matched), nil)
	case "path":
		if !matched {
			return nil // leaves ignore.path unset -> Null, spec §4.F "missing, not error"
		}
		out.Set("path", valtype.NewPath(file), nil)
	}
	return nil
}
