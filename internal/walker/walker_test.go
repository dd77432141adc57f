package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/eval"
	"github.com/standardbeagle/ff/internal/exprlang"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
)

type fileProvider struct{}

func (fileProvider) Name() string           { return "file" }
func (fileProvider) Dependencies() []string { return nil }
func (fileProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "name", Kind: valtype.KindString, Cost: 1},
		{Name: "hidden", Kind: valtype.KindBool, Cost: 1},
	}
}
func (fileProvider) Process(e registry.Entry, attr string, out registry.Setter) error {
	base := filepath.Base(e.Path())
	switch attr {
	case "name":
		out.Set("name", valtype.NewString(base), nil)
	case "hidden":
		out.Set("hidden", valtype.NewBool(len(base) > 0 && base[0] == '.'), nil)
	}
	return nil
}

type ignoreProvider struct{}

func (ignoreProvider) Name() string           { return "ignore" }
func (ignoreProvider) Dependencies() []string { return nil }
func (ignoreProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{{Name: "matched", Kind: valtype.KindBool, Cost: 1}}
}
func (ignoreProvider) Process(e registry.Entry, attr string, out registry.Setter) error {
	ignored := false
	if ig, ok := e.(interface{ IgnoreState() (bool, string) }); ok {
		ignored, _ = ig.IgnoreState()
	}
	out.Set("matched", valtype.NewBool(ignored), nil)
	return nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Provider{fileProvider{}, ignoreProvider{}})
	require.NoError(t, err)
	return reg
}

func bindExpr(t *testing.T, reg *registry.Registry, tokens ...string) eval.Bound {
	t.Helper()
	expr, err := exprlang.ParseTokens(tokens, exprlang.DefaultShorthand)
	require.NoError(t, err)
	b := &eval.Binder{Registry: reg, Cache: cache.Disabled()}
	bound, err := b.Bind(expr)
	require.NoError(t, err)
	return bound
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "bar"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bar", "baz.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bar", ".hidden"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "excluded_dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "excluded_dir", "innerfile.txt"), []byte("d"), 0o644))
	return root
}

func collect(t *testing.T, w *Walker) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, wait := w.Walk(ctx)
	var names []string
	for r := range out {
		names = append(names, r.Entry.Path())
	}
	require.NoError(t, wait())
	sort.Strings(names)
	return names
}

func TestWalkFindsMatchingFiles(t *testing.T) {
	root := buildTree(t)
	reg := testRegistry(t)
	main := bindExpr(t, reg, `\.txt$`)

	w := New(Config{Roots: []string{root}, NoIgnore: true}, reg, cache.Disabled(), main, nil)
	names := collect(t, w)

	assert.Len(t, names, 3)
	for _, n := range names {
		assert.Contains(t, n, ".txt")
	}
}

func TestWalkExclusionPrunesDirectory(t *testing.T) {
	root := buildTree(t)
	reg := testRegistry(t)
	main := bindExpr(t, reg, `\.txt$`)
	b := &eval.Binder{Registry: reg, Cache: cache.Disabled()}
	exclusion, err := eval.BuildExclusion(b, []string{"excluded_dir"}, false, false, exprlang.DefaultShorthand)
	require.NoError(t, err)

	w := New(Config{Roots: []string{root}, NoIgnore: true}, reg, cache.Disabled(), main, exclusion)
	names := collect(t, w)

	assert.Len(t, names, 2)
	for _, n := range names {
		assert.NotContains(t, n, "excluded_dir")
	}
}

func TestWalkHiddenExclusionViaDashH(t *testing.T) {
	root := buildTree(t)
	reg := testRegistry(t)
	main, err := exprlang.ParseTokens(nil, exprlang.DefaultShorthand)
	require.NoError(t, err)
	b := &eval.Binder{Registry: reg, Cache: cache.Disabled()}
	boundMain, err := b.Bind(main)
	require.NoError(t, err)

	exclusion, err := eval.BuildExclusion(b, nil, true, false, exprlang.DefaultShorthand)
	require.NoError(t, err)

	w := New(Config{Roots: []string{root}, NoIgnore: true}, reg, cache.Disabled(), boundMain, exclusion)
	names := collect(t, w)

	for _, n := range names {
		assert.NotContains(t, n, ".hidden")
	}
}

func TestWalkMaxDepthFiltersOutput(t *testing.T) {
	root := buildTree(t)
	reg := testRegistry(t)
	main := bindExpr(t, reg, `\.txt$`)

	w := New(Config{Roots: []string{root}, MaxDepth: 1, NoIgnore: true}, reg, cache.Disabled(), main, nil)
	names := collect(t, w)

	// depth 1 = direct children of root: only foo.txt qualifies (bar/baz.txt
	// and excluded_dir/innerfile.txt are depth 2).
	assert.Len(t, names, 1)
	assert.Contains(t, names[0], "foo.txt")
}

func TestWalkIgnoreFileExcludesMatches(t *testing.T) {
	root := buildTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("bar/\n"), 0o644))

	reg := testRegistry(t)
	main := bindExpr(t, reg, `\.txt$`)
	b := &eval.Binder{Registry: reg, Cache: cache.Disabled()}
	exclusion, err := eval.BuildExclusion(b, nil, false, true, exprlang.DefaultShorthand)
	require.NoError(t, err)

	w := New(Config{Roots: []string{root}}, reg, cache.Disabled(), main, exclusion)
	names := collect(t, w)

	for _, n := range names {
		assert.NotContains(t, n, "bar")
	}
	assert.Contains(t, names, filepath.Join(root, "foo.txt"))
}

func TestWalkSingleWorkerDoesNotDeadlockOnNestedDirectories(t *testing.T) {
	root := t.TempDir()
	// Two sibling subdirectories, each with its own nested subdirectory:
	// with one worker, the worker processing root must be able to queue
	// both "a" and "b" and move on, rather than blocking while trying to
	// hand either one to a (nonexistent) second worker.
	for _, dir := range []string{"a", "a/nested", "b", "b/nested"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "nested", "leaf.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "nested", "leaf.txt"), []byte("x"), 0o644))

	reg := testRegistry(t)
	main := bindExpr(t, reg, `\.txt$`)

	w := New(Config{Roots: []string{root}, Workers: 1, NoIgnore: true}, reg, cache.Disabled(), main, nil)
	names := collect(t, w)

	assert.Len(t, names, 2)
}

func TestWalkSingleFileRoot(t *testing.T) {
	root := buildTree(t)
	reg := testRegistry(t)
	main := bindExpr(t, reg, `foo`)

	w := New(Config{Roots: []string{filepath.Join(root, "foo.txt")}, NoIgnore: true}, reg, cache.Disabled(), main, nil)
	names := collect(t, w)
	require.Len(t, names, 1)
}
