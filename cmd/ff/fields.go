package main

import (
	"os"
	"strings"

	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/sink"
	"github.com/standardbeagle/ff/internal/valtype"
)

// parseFieldList resolves a comma-separated `-o`/`-S`/`--count` attribute
// list against reg. Each entry is `[plugin.]attr[#modifier]`; the
// modifier letter is one of the ones spec §4.A's format() names (h, x, o,
// n, v).
func parseFieldList(reg *registry.Registry, raw string) ([]sink.OutputField, error) {
	parts := strings.Split(raw, ",")
	fields := make([]sink.OutputField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label := part
		mod := valtype.ModNone
		if idx := strings.IndexByte(part, '#'); idx >= 0 {
			modStr := part[idx+1:]
			part = part[:idx]
			if len(modStr) != 1 {
				return nil, errkit.New(errkit.KindUsage, "parseFieldList", "modifier must be a single letter: "+modStr)
			}
			mod = valtype.Modifier(modStr[0])
		}

		plugin, attr := "", part
		if idx := strings.LastIndexByte(part, '.'); idx >= 0 {
			plugin, attr = part[:idx], part[idx+1:]
		}
		resolved, err := reg.Resolve(plugin, attr)
		if err != nil {
			return nil, err
		}
		fields = append(fields, sink.OutputField{Resolved: resolved, Modifier: mod, Label: label})
	}
	return fields, nil
}

// isRootToken applies the positional discrimination rule: a token is a
// search root (rather than an expression test) iff it contains `/` and
// names an existing filesystem entry (file or directory) — the Walker
// handles a single-file root the same way it handles a directory one.
func isRootToken(tok string) bool {
	if !strings.Contains(tok, "/") {
		return false
	}
	_, err := os.Stat(tok)
	return err == nil
}
