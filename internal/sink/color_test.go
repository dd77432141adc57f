package sink

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorModeNeverIsAlwaysDisabled(t *testing.T) {
	assert.False(t, ColorNever.enabled(&bufWriter{}))
}

func TestColorModeAlwaysIgnoresNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, ColorAlways.enabled(&bufWriter{}))
}

func TestColorModeAutoIsDisabledForNonTTYWriter(t *testing.T) {
	// bufWriter is not an *os.File, so auto mode can never consider it a
	// terminal regardless of NO_COLOR.
	assert.False(t, ColorAuto.enabled(&bufWriter{}))
}

func TestColorModeAutoRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorAuto.enabled(os.Stdout))
}

func TestParseColorModeRejectsUnknown(t *testing.T) {
	_, ok := ParseColorMode("rainbow")
	assert.False(t, ok)
}

func TestLSColorsPicksDirectoryOverExtension(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "sub.txt", 0, true)

	code := defaultLSColors.pick(entryView{r: r})
	assert.Equal(t, defaultLSColors.byKind["di"], code)
}

func TestLoadLSColorsParsesExtensionRule(t *testing.T) {
	t.Setenv("LS_COLORS", "*.md=01;33")
	colors := loadLSColors()
	assert.Equal(t, "01;33", colors.byExt[".md"])
}

func TestColorizeWrapsANSICodeWhenEnabled(t *testing.T) {
	reg := testRegistry(t)
	dir := t.TempDir()
	r := buildResult(t, reg, dir, "sub", 0, true)

	out := &bufWriter{}
	s := New(Config{Color: ColorAlways}, out)

	got := s.colorize("sub", r)
	require.Contains(t, got, "\x1b[")
	require.Contains(t, got, "sub")
}
