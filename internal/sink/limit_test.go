package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/walker"
)

func TestParseLimitSliceForm(t *testing.T) {
	spec, err := ParseLimit("2:4")
	require.NoError(t, err)
	assert.False(t, spec.isPage)
	assert.Equal(t, 2, spec.start)
	assert.Equal(t, 4, spec.stop)
}

func TestParseLimitPageForm(t *testing.T) {
	spec, err := ParseLimit("2,1")
	require.NoError(t, err)
	assert.True(t, spec.isPage)
	assert.Equal(t, 2, spec.pageSize)
	assert.Equal(t, 1, spec.page)
}

func TestParseLimitRejectsGarbage(t *testing.T) {
	_, err := ParseLimit("nonsense")
	assert.Error(t, err)
}

func TestOneLimitIsSugarForColonOne(t *testing.T) {
	one := OneLimit()
	sliced, _ := parseSliceLimit(":1")
	assert.Equal(t, sliced, one)
}

func TestResolveIndexClampsNegativeAndOverflow(t *testing.T) {
	assert.Equal(t, 0, resolveIndex(5, -10))
	assert.Equal(t, 3, resolveIndex(5, -2))
	assert.Equal(t, 5, resolveIndex(5, 100))
	assert.Equal(t, 2, resolveIndex(5, 2))
}

// namedResults builds one real, empty file per name (in lexical order
// a..z to keep the fixture simple) and returns their Results in that
// order, for tests that only care about Entry.Path() identity.
func namedResults(t *testing.T, reg *registry.Registry, dir string, names ...string) []walker.Result {
	t.Helper()
	out := make([]walker.Result, len(names))
	for i, n := range names {
		out[i] = buildResult(t, reg, dir, n, 0, false)
	}
	return out
}

func TestLimitApplySliceForm(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := namedResults(t, reg, dir, "a", "b", "c", "d", "e")
	spec, err := ParseLimit("1:3")
	require.NoError(t, err)

	got := spec.Apply(results)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Entry.Path(), "b")
	assert.Contains(t, got[1].Entry.Path(), "c")
}

func TestLimitApplyNegativeSliceBounds(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := namedResults(t, reg, dir, "a", "b", "c", "d", "e")
	spec, err := ParseLimit("-2:")
	require.NoError(t, err)

	got := spec.Apply(results)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Entry.Path(), "d")
	assert.Contains(t, got[1].Entry.Path(), "e")
}

func TestLimitApplyPageForm(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := namedResults(t, reg, dir, "a", "b", "c", "d", "e", "f", "g")
	spec, err := ParseLimit("2,1")
	require.NoError(t, err)

	got := spec.Apply(results)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Entry.Path(), "c")
	assert.Contains(t, got[1].Entry.Path(), "d")
}

// TestSortReverseLimitPipeline hand-verifies the scenario this sink is
// grounded on: sort ascending, reverse the whole permutation for -R, then
// apply the page window.
func TestSortReverseLimitPipeline(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := namedResults(t, reg, dir, "BAR", "baz", "dir", "foo")

	sortFields := []OutputField{field(t, reg, "path", "path")}
	require.NoError(t, sortResults(results, sortFields, true))

	spec, err := ParseLimit("2,0")
	require.NoError(t, err)
	got := spec.Apply(results)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Entry.Path(), "foo")
	assert.Contains(t, got[1].Entry.Path(), "dir")
}
