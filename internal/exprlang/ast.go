// Package exprlang implements ff's expression parser (spec §3, §4.B): it
// tokenizes test strings and builds the Test/And/Or/Not AST the Evaluator
// binds and reorders. It deliberately does not resolve attribute names —
// that is the Registry's and Evaluator's job (spec §4.B, last paragraph).
package exprlang

import "github.com/standardbeagle/ff/internal/valtype"

// Expr is a node of the expression tree (spec §3).
type Expr interface {
	exprNode()
}

// Test is an atom: (attribute, operator, value-expr). Plugin is the
// optional `plugin.` qualifier; Attr is the unqualified attribute name.
// Attribute resolution against the Registry happens at binding time, not
// here (spec §4.B).
type Test struct {
	Plugin string
	Attr   string
	Op     valtype.Operator
	Value  ValueExpr
}

// ValueExpr is either a literal (to be parsed per the bound attribute's
// Kind) or a file-reference substitution `{ref-attr?}path` (spec §3).
type ValueExpr struct {
	IsFileRef bool
	Literal   string // meaningful when !IsFileRef

	RefAttr string // meaningful when IsFileRef; may be "" (defaults to the Test's own attribute)
	RefPath string // meaningful when IsFileRef
}

// And is an n-ary conjunction; implicit adjacency between tests is
// rewritten to And by the parser (spec §3).
type And struct{ Children []Expr }

// Or is an n-ary disjunction.
type Or struct{ Children []Expr }

// Not negates a single child. Not-wrapped children are never inlined by
// the Evaluator's cost-reordering pass (spec §4.F).
type Not struct{ Child Expr }

func (*Test) exprNode() {}
func (*And) exprNode()  {}
func (*Or) exprNode()   {}
func (*Not) exprNode()  {}

// Empty reports whether e is the vacuous empty-And produced by parsing
// zero tokens — "Empty expression matches everything within depth/
// exclusion limits" (spec §8, Boundaries).
func Empty(e Expr) bool {
	a, ok := e.(*And)
	return ok && len(a.Children) == 0
}
