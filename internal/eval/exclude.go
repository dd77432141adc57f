package eval

import (
	"github.com/standardbeagle/ff/internal/exprlang"
)

// BuildExclusion assembles the separate exclusion evaluator instance spec
// §4.F describes: every --exclude pattern, plus the implicit
// `file.hidden=yes` test when hide is true (-H) and `ignore.matched=yes`
// when skipIgnored is true (-I), joined with Or — a directory Entry that
// matches any one of them is pruned (spec §4.F, §4.G step 3).
func BuildExclusion(b *Binder, patterns []string, hide, skipIgnored bool, shorthand exprlang.ShorthandDefault) (Bound, error) {
	var children []exprlang.Expr

	for _, pattern := range patterns {
		test, err := exprlang.ParseTestToken(pattern, shorthand)
		if err != nil {
			return nil, err
		}
		children = append(children, test)
	}
	if hide {
		hidden, err := exprlang.ParseTestToken("file.hidden=yes", shorthand)
		if err != nil {
			return nil, err
		}
		children = append(children, hidden)
	}
	if skipIgnored {
		ignored, err := exprlang.ParseTestToken("ignore.matched=yes", shorthand)
		if err != nil {
			return nil, err
		}
		children = append(children, ignored)
	}

	if len(children) == 0 {
		return &Or{}, nil // never excludes anything
	}
	return b.Bind(&exprlang.Or{Children: children})
}
