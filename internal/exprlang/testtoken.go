package exprlang

import (
	"strings"

	"github.com/standardbeagle/ff/internal/valtype"
)

// operatorsByLength is valtype.AllOperators sorted longest-first so the
// longest-match rule in spec §4.B ("op is the longest-match in the ordered
// set +=, -=, >=, <=, =, +, -, >, <, :, ~, %") is trivial to apply.
var operatorsByLength = sortedOperators()

func sortedOperators() []valtype.Operator {
	ops := append([]valtype.Operator(nil), valtype.AllOperators...)
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && len(ops[j]) > len(ops[j-1]); j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
		}
	}
	return ops
}

// isAttrChar reports whether c can appear in an attribute name. Notably
// excludes '-' and '+', which are themselves operators (OpLt, OpGt) — an
// attribute name never contains them, so the scan in splitOperator can
// rely on the first non-attr character being the start of the operator.
func isAttrChar(c byte) bool {
	return c == '.' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ShorthandDefault is the attribute/operator pair the bare-regex shorthand
// `<regex>` rewrites to when the caller does not override it (spec §4.B:
// "rewritten to file.name~<regex> unless the calling layer requested a
// different shorthand attribute/operator").
type ShorthandDefault struct {
	Plugin string
	Attr   string
	Op     valtype.Operator
}

var DefaultShorthand = ShorthandDefault{Plugin: "file", Attr: "name", Op: valtype.OpRe}

// ParseTestToken splits one test token into a Test node. The plugin prefix
// is the text before the first '.' in the attribute part, if any.
func ParseTestToken(tok string, shorthand ShorthandDefault) (*Test, error) {
	if tok == "" {
		return nil, &SyntaxError{Kind: ErrTestSyntax, Msg: "empty test token"}
	}

	attrPart, op, value, found := splitOperator(tok)
	if !found {
		// Shorthand: the whole token is a bare value against the default
		// attribute/operator.
		return &Test{
			Plugin: shorthand.Plugin,
			Attr:   shorthand.Attr,
			Op:     shorthand.Op,
			Value:  parseValueExpr(tok),
		}, nil
	}
	if attrPart == "" {
		return nil, &SyntaxError{Kind: ErrTestSyntax, Token: tok, Msg: "missing attribute before operator"}
	}

	plugin, attr := "", attrPart
	if idx := strings.IndexByte(attrPart, '.'); idx >= 0 {
		plugin, attr = attrPart[:idx], attrPart[idx+1:]
	}
	if attr == "" {
		return nil, &SyntaxError{Kind: ErrTestSyntax, Token: tok, Msg: "empty attribute name"}
	}

	return &Test{
		Plugin: plugin,
		Attr:   attr,
		Op:     valtype.Canonicalize(op),
		Value:  parseValueExpr(value),
	}, nil
}

// splitOperator finds the leftmost position where a recognized operator
// begins, outside the attribute-name character class, and returns the
// parts around it.
func splitOperator(tok string) (attrPart string, op valtype.Operator, value string, found bool) {
	for i := 0; i < len(tok); i++ {
		if isAttrChar(tok[i]) {
			continue
		}
		for _, candidate := range operatorsByLength {
			if strings.HasPrefix(tok[i:], string(candidate)) {
				return tok[:i], candidate, tok[i+len(candidate):], true
			}
		}
		// A non-attribute character that isn't the start of any operator:
		// keep scanning — it may be inside a value-less attribute name in
		// an unusual encoding, but more commonly it means there is no
		// operator in this token at all (bare regex shorthand).
	}
	return "", "", "", false
}

// parseValueExpr recognizes the file-reference form `{ref-attr?}path`;
// anything else is a literal.
func parseValueExpr(s string) ValueExpr {
	if strings.HasPrefix(s, "{") {
		if end := strings.IndexByte(s, '}'); end >= 0 {
			return ValueExpr{
				IsFileRef: true,
				RefAttr:   s[1:end],
				RefPath:   s[end+1:],
			}
		}
	}
	return ValueExpr{Literal: s}
}
