package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/exprlang"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
)

// fileProvider is a minimal stand-in exercising the attributes these
// tests need: name (string), size (size, cheap), mtime (time).
type fileProvider struct{}

func (fileProvider) Name() string          { return "file" }
func (fileProvider) Dependencies() []string { return nil }
func (fileProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "name", Kind: valtype.KindString, Cost: 1, Cacheable: false},
		{Name: "size", Kind: valtype.KindSize, Cost: 1, Cacheable: false},
		{Name: "mtime", Kind: valtype.KindTime, Cost: 1, Cacheable: false},
		{Name: "hidden", Kind: valtype.KindBool, Cost: 5, Cacheable: false},
	}
}
func (fileProvider) Process(e registry.Entry, attr string, out registry.Setter) error {
	isDir, size, _ := e.Info()
	path := e.Path()
	switch attr {
	case "name":
		out.Set("name", valtype.NewString(filepath.Base(path)), nil)
	case "size":
		out.Set("size", valtype.NewSize(size), nil)
	case "mtime":
		out.Set("mtime", valtype.NewTime(0), nil)
	case "hidden":
		out.Set("hidden", valtype.NewBool(!isDir && filepath.Base(path)[0] == '.'), nil)
	}
	return nil
}

type ignoreProvider struct{ matched bool }

func (p ignoreProvider) Name() string          { return "ignore" }
func (p ignoreProvider) Dependencies() []string { return nil }
func (p ignoreProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{{Name: "matched", Kind: valtype.KindBool, Cost: 2, Cacheable: false}}
}
func (p ignoreProvider) Process(e registry.Entry, attr string, out registry.Setter) error {
	out.Set("matched", valtype.NewBool(p.matched), nil)
	return nil
}

// unsetProvider declares file.name but never calls Set for it, so every
// lookup of that attribute comes back missing.
type unsetProvider struct{}

func (unsetProvider) Name() string          { return "file" }
func (unsetProvider) Dependencies() []string { return nil }
func (unsetProvider) Attributes() []registry.Descriptor {
	return []registry.Descriptor{{Name: "name", Kind: valtype.KindString, Cost: 1, Cacheable: false}}
}
func (unsetProvider) Process(e registry.Entry, attr string, out registry.Setter) error { return nil }

func testRegistry(t *testing.T, ip ignoreProvider) *registry.Registry {
	t.Helper()
	r, err := registry.New([]registry.Provider{fileProvider{}, ip})
	require.NoError(t, err)
	return r
}

func testEntry(t *testing.T, name string, size int) evalctx.Entry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	e, err := evalctx.StatEntry(path)
	require.NoError(t, err)
	return e
}

func TestBindAndEvaluateSimpleEquality(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"name=hello.txt"}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	bound, err := b.Bind(expr)
	require.NoError(t, err)

	entry := testEntry(t, "hello.txt", 10)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, bound)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateShortCircuitsAndOnFalse(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"name=nope.txt", "size+999999"}, exprlang.DefaultShorthand)
	require.NoError(t, err)
	bound, err := b.Bind(expr)
	require.NoError(t, err)

	entry := testEntry(t, "hello.txt", 10)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, bound)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBindRejectsUnsupportedOperator(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"name+10"}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	_, err = b.Bind(expr)
	assert.Error(t, err)
}

func TestBindRejectsUnknownAttribute(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"nope=1"}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	_, err = b.Bind(expr)
	assert.Error(t, err)
}

func TestChildrenReorderedCostAscending(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"hidden=yes", "name=a"}, exprlang.DefaultShorthand)
	require.NoError(t, err)
	bound, err := b.Bind(expr)
	require.NoError(t, err)

	and, ok := bound.(*And)
	require.True(t, ok)
	require.Len(t, and.Children, 2)
	first := and.Children[0].(*Test)
	assert.Equal(t, "name", first.Resolved.Descriptor.Name, "cheaper name test (cost 1) must sort before hidden (cost 5)")
}

func TestEvaluateMissingAttributeIsFalseNotError(t *testing.T) {
	// A missing "name" is simulated by a registry whose only provider
	// declares "name" but never calls Set for it.
	reg, err := registry.New([]registry.Provider{unsetProvider{}})
	require.NoError(t, err)
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"name=a"}, exprlang.DefaultShorthand)
	require.NoError(t, err)
	bound, err := b.Bind(expr)
	require.NoError(t, err)

	entry := testEntry(t, "a", 0)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, bound)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildExclusionMatchesHiddenFiles(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	excl, err := BuildExclusion(b, nil, true, false, exprlang.DefaultShorthand)
	require.NoError(t, err)

	entry := testEntry(t, ".hidden", 0)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, excl)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildExclusionMatchesIgnored(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{matched: true})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	excl, err := BuildExclusion(b, nil, false, true, exprlang.DefaultShorthand)
	require.NoError(t, err)

	entry := testEntry(t, "visible.txt", 0)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, excl)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildExclusionEmptyNeverExcludes(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	excl, err := BuildExclusion(b, nil, false, false, exprlang.DefaultShorthand)
	require.NoError(t, err)

	entry := testEntry(t, "anything.txt", 0)
	ctx := evalctx.New(entry, reg, cache.Disabled())

	ok, err := Evaluate(ctx, excl)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileReferenceValueResolvesAgainstThrowawayContext(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	refDir := t.TempDir()
	refPath := filepath.Join(refDir, "ref.bin")
	require.NoError(t, os.WriteFile(refPath, make([]byte, 42), 0o644))

	b := &Binder{Registry: reg, Cache: cache.Disabled()}
	expr, err := exprlang.ParseTokens([]string{"size=" + "{size}" + refPath}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	bound, err := b.Bind(expr)
	require.NoError(t, err)
	test := bound.(*Test)
	assert.Equal(t, int64(42), test.Value.Num())
}

func TestFileReferenceEmptyAttrDefaultsToTestedAttribute(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	refDir := t.TempDir()
	refPath := filepath.Join(refDir, "ref.bin")
	require.NoError(t, os.WriteFile(refPath, make([]byte, 42), 0o644))

	b := &Binder{Registry: reg, Cache: cache.Disabled()}
	expr, err := exprlang.ParseTokens([]string{"size=" + "{}" + refPath}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	bound, err := b.Bind(expr)
	require.NoError(t, err)
	test := bound.(*Test)
	assert.Equal(t, int64(42), test.Value.Num())
}

func TestFileReferenceUnstatablePathIsFatal(t *testing.T) {
	reg := testRegistry(t, ignoreProvider{})
	b := &Binder{Registry: reg, Cache: cache.Disabled()}

	expr, err := exprlang.ParseTokens([]string{"size=" + "{size}/does/not/exist/at/all"}, exprlang.DefaultShorthand)
	require.NoError(t, err)

	_, err = b.Bind(expr)
	assert.Error(t, err)
}
