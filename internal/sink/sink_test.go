package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// fixtureProvider is a minimal "file" stand-in exposing exactly the
// attributes these tests exercise: path/size/type from the real stat, and
// val, a string attribute that is null for any basename starting with "x"
// (so tests can exercise null-suppression without a second provider).
type fixtureProvider struct{}

func (fixtureProvider) Name() string           { return "file" }
func (fixtureProvider) Dependencies() []string { return nil }
func (fixtureProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "path", Kind: valtype.KindPath},
		{Name: "size", Kind: valtype.KindSize},
		{Name: "type", Kind: valtype.KindFileType},
		{Name: "val", Kind: valtype.KindString},
	}
}

func (fixtureProvider) Process(e registry.Entry, attr string, out registry.Setter) error {
	isDir, size, _ := e.Info()
	switch attr {
	case "path":
		out.Set("path", valtype.NewPath(e.Path()), nil)
	case "size":
		if isDir {
			size = 0 // deterministic for tests; real filesystem directory sizes vary
		}
		out.Set("size", valtype.NewSize(size), nil)
	case "type":
		code := byte('f')
		if isDir {
			code = 'd'
		}
		ft, _ := valtype.NewFileType(code)
		out.Set("type", ft, nil)
	case "val":
		base := filepath.Base(e.Path())
		if strings.HasPrefix(base, "x") {
			return nil // leaves val unset -> Null
		}
		out.Set("val", valtype.NewString(base), nil)
	}
	return nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Provider{fixtureProvider{}})
	require.NoError(t, err)
	return reg
}

func resolve(t *testing.T, reg *registry.Registry, attr string) registry.Resolved {
	t.Helper()
	r, err := reg.Resolve("file", attr)
	require.NoError(t, err)
	return r
}

func field(t *testing.T, reg *registry.Registry, attr, label string) OutputField {
	t.Helper()
	return OutputField{Resolved: resolve(t, reg, attr), Label: label}
}

// buildResult writes a real file (or directory) of the given size under
// dir and returns a walker.Result backed by the fixture registry above.
func buildResult(t *testing.T, reg *registry.Registry, dir, name string, size int, isDir bool) walker.Result {
	t.Helper()
	path := filepath.Join(dir, name)
	if isDir {
		require.NoError(t, os.Mkdir(path, 0o755))
	} else {
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	info, err := os.Lstat(path)
	require.NoError(t, err)

	entry := evalctx.NewEntry(path, info)
	ctx := evalctx.New(entry, reg, cache.Disabled())
	return walker.Result{Entry: entry, Ctx: ctx}
}

type bufWriter struct{ b strings.Builder }

func (w *bufWriter) Write(p []byte) (int, error) { return w.b.Write(p) }
func (w *bufWriter) String() string              { return w.b.String() }
