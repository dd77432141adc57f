package valtype

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in    string
		si    bool
		bytes int64
	}{
		{"10", false, 10},
		{"1K", false, 1024},
		{"1Ki", false, 1024},
		{"1KiB", false, 1024},
		{"1KB", false, 1000},
		{"1K", true, 1000},  // si swaps the bare-letter default
		{"1Ki", true, 1024}, // explicit "i" always means 1024
		{"2M", false, 2 * 1024 * 1024},
		{"1G", false, 1024 * 1024 * 1024},
	}
	for _, c := range cases {
		v, err := ParseSize(c.in, c.si)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.bytes, v.Num(), c.in)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in  string
		sec int64
	}{
		{"5", 5 * 60},
		{"90s", 90},
		{"2h", 2 * 3600},
		{"1d", 86400},
		{"1w", 7 * 86400},
		{"1h30m", 3600 + 30*60},
	}
	for _, c := range cases {
		v, err := ParseDuration(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.sec, v.Num(), c.in)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "T", "1", "yes", "Y", "on"} {
		v, err := ParseBool(s)
		require.NoError(t, err)
		assert.True(t, v.Bool())
	}
	for _, s := range []string{"false", "F", "0", "no", "N", "off"} {
		v, err := ParseBool(s)
		require.NoError(t, err)
		assert.False(t, v.Bool())
	}
	_, err := ParseBool("maybe")
	require.Error(t, err)
}

func TestParseTime(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	v, err := ParseTime("2026-07-30", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1785369600), v.Num())

	v2, err := ParseTime("1700000000", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), v2.Num())
}

func TestParseModeOctalAndSymbolic(t *testing.T) {
	v, err := ParseMode("0755")
	require.NoError(t, err)
	assert.Equal(t, uint16(0o755), v.Mode())

	v2, err := ParseMode("u=rwx,g=rx,o=r")
	require.NoError(t, err)
	assert.Equal(t, uint16(0o754), v2.Mode())
}

func TestEvalStringOperators(t *testing.T) {
	entry := NewString("hello world")
	ok, err := Eval(OpIn, entry, NewString("wor"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(OpRe, entry, NewString("^hello"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(OpGl, NewPath("a/b/c.go"), NewPath("**/*.go"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalOperatorNotSupported(t *testing.T) {
	_, err := Eval(OpIn, NewBool(true), NewBool(true))
	require.Error(t, err)
	var opErr *OperatorError
	require.ErrorAs(t, err, &opErr)
}

func TestEvalModeSubsetAndAnyOf(t *testing.T) {
	entry := NewMode(0o755)
	ok, err := Eval(OpIn, entry, NewMode(0o700))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(OpRe, entry, NewMode(0o010)) // group execute bit, set in 0o755
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Eval(OpIn, entry, NewMode(0o070))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNullNeverEqualsLiteral(t *testing.T) {
	assert.False(t, Null.Equal(NewString("")))
	assert.True(t, Null.Equal(Null))
}

func TestSortKeyNatural(t *testing.T) {
	a, _ := DeriveSortKey(NewString("file2"), ModNat)
	b, _ := DeriveSortKey(NewString("file10"), ModNat)
	assert.True(t, a.Less(b))
}

func TestFormatRoundTrip(t *testing.T) {
	v, err := ParseSize("4", false)
	require.NoError(t, err)
	s, err := Format(v, ModNone)
	require.NoError(t, err)
	assert.Equal(t, "4", s)

	human, err := Format(NewSize(2048), ModHuman)
	require.NoError(t, err)
	assert.Equal(t, "2.0KiB", human)
}

func TestFormatFileTypeRendersLongWord(t *testing.T) {
	v, err := ParseFileType("d")
	require.NoError(t, err)
	s, err := Format(v, ModNone)
	require.NoError(t, err)
	assert.Equal(t, "directory", s)

	v2, err := ParseFileType("f")
	require.NoError(t, err)
	s2, err := Format(v2, ModNone)
	require.NoError(t, err)
	assert.Equal(t, "file", s2)
}

func TestCountPolicy(t *testing.T) {
	assert.Equal(t, CountSum, Policy(KindSize))
	assert.Equal(t, CountSum, Policy(KindDuration))
	assert.Equal(t, CountNotCountable, Policy(KindPath))
	assert.Equal(t, CountNotCountable, Policy(KindTime))
	assert.Equal(t, CountTally, Policy(KindString))
}

func TestCaseModeSmartFoldsOnlyForLowercasePattern(t *testing.T) {
	defer SetCaseMode(CaseSmart)

	SetCaseMode(CaseSmart)
	ok, err := Eval(OpEq, NewString("README"), NewString("readme"))
	require.NoError(t, err)
	assert.True(t, ok, "lowercase pattern should fold against a mixed-case entry")

	ok, err = Eval(OpEq, NewString("README"), NewString("Readme"))
	require.NoError(t, err)
	assert.False(t, ok, "a pattern with an uppercase letter disables folding under smart case")
}

func TestCaseModeIgnoreAlwaysFolds(t *testing.T) {
	defer SetCaseMode(CaseSmart)

	SetCaseMode(CaseIgnore)
	ok, err := Eval(OpEq, NewString("README"), NewString("Readme"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCaseModeSensitiveNeverFolds(t *testing.T) {
	defer SetCaseMode(CaseSmart)

	SetCaseMode(CaseSensitive)
	ok, err := Eval(OpEq, NewString("readme"), NewString("README"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaseModeDoesNotRewriteRegexPattern(t *testing.T) {
	defer SetCaseMode(CaseSmart)

	SetCaseMode(CaseIgnore)
	ok, err := Eval(OpRe, NewString("readme"), NewString("^README$"))
	require.NoError(t, err)
	assert.False(t, ok, "-c never folds a regex pattern; use inline (?i) instead")
}
