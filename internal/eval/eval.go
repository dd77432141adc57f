package eval

import (
	"github.com/standardbeagle/ff/internal/evalctx"
	"github.com/standardbeagle/ff/internal/valtype"
)

// Evaluate walks a Bound tree against ctx's Entry, short-circuiting And on
// first false and Or on first true (spec §4.F, "Evaluation"). A missing
// attribute (provider error, or never set for this Entry) makes its Test
// evaluate false without propagating an error — only a genuine operator
// error (a caller bug valtype.Eval would otherwise panic on, never
// reachable once Bind has validated operator support) surfaces here.
func Evaluate(ctx *evalctx.Context, b Bound) (bool, error) {
	switch n := b.(type) {
	case *Test:
		return evalTest(ctx, n)
	case *Not:
		ok, err := Evaluate(ctx, n.Child)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case *And:
		for _, child := range n.Children {
			ok, err := Evaluate(ctx, child)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case *Or:
		for _, child := range n.Children {
			ok, err := Evaluate(ctx, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func evalTest(ctx *evalctx.Context, t *Test) (bool, error) {
	entryValue, err := ctx.GetResolved(t.Resolved)
	if err != nil || entryValue.IsNull() {
		// Missing attribute: spec §4.F, "evaluates false without error".
		return false, nil
	}
	return valtype.Eval(t.Op, entryValue, t.Value)
}
