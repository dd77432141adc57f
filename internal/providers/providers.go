package providers

import "github.com/standardbeagle/ff/internal/registry"

// Core returns the always-loaded providers every run registers before any
// plugin directory is scanned (spec §4.C).
func Core() []registry.Provider {
	return []registry.Provider{File{}, Ignore{}}
}
