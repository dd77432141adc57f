package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ff/internal/walker"
)

func TestEmitCountSumsSizeAndTalliesType(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := []walker.Result{
		buildResult(t, reg, dir, "a.txt", 10, false),
		buildResult(t, reg, dir, "b.txt", 20, false),
		buildResult(t, reg, dir, "sub", 0, true),
	}

	out := &bufWriter{}
	s := New(Config{
		Mode:  ModeCount,
		Count: []OutputField{field(t, reg, "size", "size"), field(t, reg, "type", "type")},
	}, out)

	sum, err := s.emitCount(results)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Matches)

	got := out.String()
	assert.Contains(t, got, "size=30\n")
	assert.Contains(t, got, "type[directory]=1\n")
	assert.Contains(t, got, "type[file]=2\n")
	assert.Contains(t, got, "_total=3\n")
}

func TestEmitCountRejectsNonCountableAttribute(t *testing.T) {
	reg := testRegistry(t)
	out := &bufWriter{}
	s := New(Config{
		Mode:  ModeCount,
		Count: []OutputField{field(t, reg, "path", "path")},
	}, out)

	_, err := s.emitCount(nil)
	require.Error(t, err)
}

func TestEmitCountEmitsTotalWithNoAttributes(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	results := []walker.Result{buildResult(t, reg, dir, "a.txt", 1, false)}

	out := &bufWriter{}
	s := New(Config{Mode: ModeCount}, out)
	s.cfg.Count = nil // bypass New's defaulting to exercise the empty-attribute path directly

	sum, err := s.emitCount(results)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Matches)
	assert.Equal(t, "_total=1\n", out.String())
}
