// Package registry implements the attribute provider catalog (spec §4.C):
// name resolution, cost/cacheability reporting, and the dependency
// ordering providers are loaded in.
package registry

import "github.com/standardbeagle/ff/internal/valtype"

// Descriptor is one `(attribute-name, type, cost, cacheable?)` entry a
// Provider declares (spec §4.C).
type Descriptor struct {
	Name      string
	Kind      valtype.Kind
	Cost      int
	Cacheable bool
	Help      string
}

// Setter is the interface a Provider calls into to populate one or
// more attributes on an entry in one invocation (spec §4.C, §4.E: "the
// provider may set multiple attributes in one call, amortizing expensive
// work such as ELF parsing"). Set stores a computed Value or error marker
// for one attribute belonging to this provider.
type Setter interface {
	Set(attr string, v valtype.Value, err error)
}

// Provider is a named source of attributes. Dependencies names other
// providers that must be loaded (and whose process may be called) before
// this one — used for the topological load order (spec §4.C).
type Provider interface {
	Name() string
	Dependencies() []string
	Attributes() []Descriptor
	Process(entry Entry, attr string, out Setter) error
}

// Entry is the minimal view of a filesystem entry a Provider needs; it is
// satisfied by the Walker's entry type and by lightweight stand-ins built
// for file-reference resolution (spec §4.F).
type Entry interface {
	Path() string
	Info() (isDir bool, size int64, mode uint32)
}
