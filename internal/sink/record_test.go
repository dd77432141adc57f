package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRecordJoinsFieldsWithSep(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "foo.txt", 10, false)

	out := &bufWriter{}
	s := New(Config{
		Output: []OutputField{field(t, reg, "path", "path"), field(t, reg, "size", "size")},
		Sep:    "|",
	}, out)

	require.NoError(t, s.emitRecord(r))
	assert.Equal(t, r.Entry.Path()+"|10\n", out.String())
}

func TestEmitRecordSuppressesNullFieldByDefault(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "xnull.txt", 1, false) // "val" is Null for an "x"-prefixed name

	out := &bufWriter{}
	s := New(Config{
		Output: []OutputField{field(t, reg, "path", "path"), field(t, reg, "val", "val")},
	}, out)

	require.NoError(t, s.emitRecord(r))
	assert.Empty(t, out.String(), "a null field suppresses the whole record")
}

func TestEmitRecordAllOverridesSuppression(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "xnull.txt", 1, false)

	out := &bufWriter{}
	s := New(Config{
		Output: []OutputField{field(t, reg, "path", "path"), field(t, reg, "val", "val")},
		All:    true,
	}, out)

	require.NoError(t, s.emitRecord(r))
	assert.Equal(t, r.Entry.Path()+" \n", out.String(), "--all renders the null field as empty instead of suppressing")
}

func TestEmitRecordNullSepUsesNUL(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "foo.txt", 1, false)

	out := &bufWriter{}
	s := New(Config{
		Output:  []OutputField{field(t, reg, "path", "path")},
		NullSep: true,
	}, out)

	require.NoError(t, s.emitRecord(r))
	got := out.String()
	require.NotEmpty(t, got)
	assert.Equal(t, byte(0), got[len(got)-1])
}
