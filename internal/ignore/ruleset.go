package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Ruleset is every pattern parsed from one ignore file.
type Ruleset struct {
	Dir      string // absolute directory the ignore file lives in
	File     string // absolute path to the ignore file itself (spec's ignore.path)
	Patterns []Pattern
}

// DefaultNames are the ignore files ff recognizes unless overridden by
// --ignore-files (spec §6, "Persisted state").
var DefaultNames = []string{".gitignore", ".ignore", ".fdignore", ".ffignore"}

// LoadFrame parses every recognized ignore file present directly in dir,
// one Ruleset per file so the winning pattern's originating file (not
// just its directory) can be reported for the `ignore.path` attribute.
func LoadFrame(dir string, names []string) ([]*Ruleset, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	var frame []*Ruleset
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			continue // absent ignore file is not an error
		}
		patterns, scanErr := parseFile(f)
		_ = f.Close()
		if scanErr != nil {
			return nil, scanErr
		}
		if len(patterns) > 0 {
			frame = append(frame, &Ruleset{Dir: dir, File: path, Patterns: patterns})
		}
	}
	return frame, nil
}

func parseFile(f *os.File) ([]Pattern, error) {
	var patterns []Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParsePattern(line))
	}
	return patterns, scanner.Err()
}
