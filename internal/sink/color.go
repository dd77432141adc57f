package sink

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/standardbeagle/ff/internal/walker"
)

// ColorMode is `-C`'s never|auto|always setting (spec §6).
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorNever
	ColorAlways
)

// ParseColorMode parses the `-C`/`--color` flag value.
func ParseColorMode(s string) (ColorMode, bool) {
	switch s {
	case "never":
		return ColorNever, true
	case "auto":
		return ColorAuto, true
	case "always":
		return ColorAlways, true
	default:
		return ColorAuto, false
	}
}

// enabled resolves whether colorized output should actually be produced:
// --color=never always wins, --color=always always wins, and auto depends
// on stdout being a real terminal and NO_COLOR being unset (spec §4.H,
// §6 "LS_COLORS, NO_COLOR").
func (m ColorMode) enabled(out writer) bool {
	switch m {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		f, ok := out.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

// lsColors is a minimal dircolors-style table: selector ("di", "ln", "ex")
// or "*.ext" -> ANSI SGR sequence, seeded with dircolors' own defaults and
// overridden by LS_COLORS if set (spec §4.H, "dircolors-style rules").
type lsColors struct {
	byKind map[string]string
	byExt  map[string]string
}

var defaultLSColors = lsColors{
	byKind: map[string]string{
		"di": "01;34", // directory: bold blue
		"ln": "01;36", // symlink: bold cyan
		"ex": "01;32", // executable: bold green
	},
	byExt: map[string]string{},
}

func loadLSColors() lsColors {
	spec := os.Getenv("LS_COLORS")
	if spec == "" {
		return defaultLSColors
	}
	colors := lsColors{byKind: map[string]string{}, byExt: map[string]string{}}
	for k, v := range defaultLSColors.byKind {
		colors.byKind[k] = v
	}
	for _, entry := range strings.Split(spec, ":") {
		sel, code, found := strings.Cut(entry, "=")
		if !found || code == "" {
			continue
		}
		if strings.HasPrefix(sel, "*.") {
			colors.byExt[strings.ToLower(sel[1:])] = code
		} else {
			colors.byKind[sel] = code
		}
	}
	return colors
}

// pick returns the SGR code for one entry, or "" for no color (a plain
// regular file with no extension match renders uncolored, matching
// dircolors' own behavior of leaving "fi" unset by default).
func (c lsColors) pick(e evalEntryLike) string {
	if e.isDir() {
		return c.byKind["di"]
	}
	if e.isSymlink() {
		return c.byKind["ln"]
	}
	if e.isExecutable() {
		return c.byKind["ex"]
	}
	if code, ok := c.byExt[strings.ToLower(filepath.Ext(e.path()))]; ok {
		return code
	}
	return ""
}

// evalEntryLike is the narrow view color.go needs from an evalctx.Entry,
// named separately so colorize's caller doesn't have to import evalctx
// just to build the argument.
type evalEntryLike interface {
	path() string
	isDir() bool
	isSymlink() bool
	isExecutable() bool
}

type entryView struct{ r walker.Result }

func (v entryView) path() string { return v.r.Entry.Path() }
func (v entryView) isDir() bool  { return v.r.Entry.IsDir() }
func (v entryView) isSymlink() bool {
	return v.r.Entry.Mode()&os.ModeSymlink != 0
}
func (v entryView) isExecutable() bool {
	return !v.r.Entry.IsDir() && v.r.Entry.Mode()&0o111 != 0
}

// colorize wraps rendered (a formatted path field) in the SGR code for
// r's entry, if colorization is currently enabled.
func (s *Sink) colorize(rendered string, r walker.Result) string {
	if !s.cfg.Color.enabled(s.out) {
		return rendered
	}
	if s.colors == nil {
		c := loadLSColors()
		s.colors = &c
	}
	code := s.colors.pick(entryView{r: r})
	if code == "" {
		return rendered
	}
	return "\x1b[" + code + "m" + rendered + "\x1b[0m"
}
