// Package config loads ff's optional KDL configuration file (default
// `.ff.kdl` in the current directory), the way the teacher project loads
// `.lci.kdl`: a struct of defaults, overridden node by node by whatever the
// file actually sets, then overridden again by CLI flags at the call site.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// fileName is the default config file name ff looks for in the current
// directory; `--config` overrides the path entirely.
const fileName = ".ff.kdl"

// Config is every setting spec.md's ambient configuration story names:
// cache location, the ignore-file names a directory scan treats as
// gitignore-style rulesets, plugin search directories, and the defaults
// for worker count, color mode, and halt policy that CLI flags override.
type Config struct {
	CachePath   string
	IgnoreFiles []string
	PluginDirs  []string
	Workers     int    // 0 = auto (runtime.NumCPU())
	Color       string // never|auto|always
	Halt        string // never|soon|now
}

// Default returns the built-in configuration used when no `.ff.kdl` file
// is found and no CLI flag overrides a setting.
func Default() *Config {
	return &Config{
		CachePath:   defaultCachePath(),
		IgnoreFiles: []string{".gitignore", ".ignore", ".fdignore", ".ffignore"},
		PluginDirs:  nil,
		Workers:     0,
		Color:       "auto",
		Halt:        "never",
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".ff-cache.db"
	}
	return filepath.Join(dir, "ff", "cache.db")
}

// Load resolves the configuration for a run: `path` is the `--config` flag
// value (empty means "look for .ff.kdl in searchDir"); searchDir is the
// directory the search is rooted in. A missing config file is not an
// error — it just means every setting stays at its built-in default.
func Load(path, searchDir string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(searchDir, fileName)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := parseKDL(string(content), cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv merges FF_PLUGIN_DIRS (colon-separated, like PATH) into the
// plugin directory list the config file and built-in defaults produced.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FF_PLUGIN_DIRS"); v != "" {
		cfg.PluginDirs = append(cfg.PluginDirs, splitPathList(v)...)
	}
}

func splitPathList(v string) []string {
	var out []string
	start := 0
	for i := 0; i < len(v); i++ {
		if v[i] == os.PathListSeparator {
			if v[start:i] != "" {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	if v[start:] != "" {
		out = append(out, v[start:])
	}
	return out
}

// WorkerCount resolves cfg.Workers (0 = auto) against the CPU count.
func (cfg *Config) WorkerCount() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.NumCPU()
}

// SplitOptions splits FF_OPTIONS' shell-word-quoted value into argv-style
// tokens, prepended to os.Args before flag parsing. This is a small
// hand-rolled splitter rather than an imported shell-quoting library:
// the only shell-word-split package anywhere in the retrieved corpus
// (go-shlex) is an indirect dependency of an unrelated example repo with
// no call site in the pack to ground its exact function signature on, and
// guessing an import that might not match its real API risks a tree that
// looks grounded but does not compile. The rule this implements is the
// simple, common one: whitespace-separated words, with '"'/''' pairs
// allowed to contain whitespace.
func SplitOptions(s string) []string {
	var out []string
	var cur []rune
	inQuote := rune(0)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				cur = append(cur, r)
			}
		case r == '"' || r == '\'':
			inQuote = r
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}
