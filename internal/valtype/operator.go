package valtype

// Operator is one of the eight comparison operators a Test may use
// (spec §4.B, §6). Synonyms (>,<,>=,<=) are normalized to the canonical
// form by the parser before a Test reaches the Evaluator.
type Operator string

const (
	OpEq Operator = "="  // equality, all types
	OpIn Operator = ":"  // substring / subset-of-bits / any-element-contains
	OpRe Operator = "~"  // regex / any-of-bits / any-element-regex
	OpGl Operator = "%"  // glob (gitignore-flavored), strings/paths/list
	OpGt Operator = "+"  // greater, synonym ">"
	OpLt Operator = "-"  // less, synonym "<"
	OpGe Operator = "+=" // greater-or-equal, synonym ">="
	OpLe Operator = "-=" // less-or-equal, synonym "<="
)

// Canonicalize maps an operator's ordering synonyms onto their canonical
// spelling. Non-ordering operators are returned unchanged.
func Canonicalize(op Operator) Operator {
	switch op {
	case ">":
		return OpGt
	case "<":
		return OpLt
	case ">=":
		return OpGe
	case "<=":
		return OpLe
	default:
		return op
	}
}

// AllOperators lists every operator token the parser recognizes, ordered
// longest-match-first as required by the test token grammar (spec §4.B).
var AllOperators = []Operator{OpGe, OpLe, ">=", "<=", OpEq, OpGt, OpLt, ">", "<", OpIn, OpRe, OpGl}
