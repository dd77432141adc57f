package valtype

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// OperatorError is a test-definition error: an operator that isn't in a
// type's supported set (spec §6, "Operator not in the type's table →
// test-definition error (exit 12)").
type OperatorError struct {
	Kind Kind
	Op   Operator
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("valtype: operator %q is not valid for type %s", e.Op, e.Kind)
}

// Operators returns the operator set a Kind supports (spec §4.A/§6).
func Operators(k Kind) []Operator {
	switch k {
	case KindString, KindPath:
		return []Operator{OpEq, OpIn, OpRe, OpGl}
	case KindNumber, KindSize, KindTime, KindDuration:
		return []Operator{OpEq, OpGt, OpLt, OpGe, OpLe}
	case KindMode:
		return []Operator{OpEq, OpIn, OpRe}
	case KindFileType, KindBool:
		return []Operator{OpEq}
	case KindList:
		return []Operator{OpEq, OpIn, OpRe, OpGl}
	default:
		return nil
	}
}

func supports(k Kind, op Operator) bool {
	for _, o := range Operators(k) {
		if o == op {
			return true
		}
	}
	return false
}

// CaseMode is the process-wide string comparison policy `-c` sets (spec
// §6, "-c smart|ignore|sensitive"). It is resolved once at startup before
// any worker goroutine starts and never written again, so plain reads
// from worker goroutines need no synchronization.
type CaseMode int

const (
	CaseSmart CaseMode = iota // fold case unless the test value itself has an uppercase letter
	CaseIgnore                // always fold
	CaseSensitive             // never fold
)

var activeCaseMode = CaseSmart

// SetCaseMode sets the process-wide case policy; called once from the CLI
// layer before the walk starts.
func SetCaseMode(m CaseMode) { activeCaseMode = m }

func foldForCompare(test string) bool {
	switch activeCaseMode {
	case CaseIgnore:
		return true
	case CaseSensitive:
		return false
	default: // CaseSmart
		return test == strings.ToLower(test)
	}
}

var regexCache sync.Map // string -> *regexp.Regexp

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// Eval applies op to (entryValue, testValue) per the semantics in spec §6.
// entryValue is the attribute's computed Value for the Entry under test;
// testValue is the parsed literal (or resolved file-reference value) on
// the right-hand side of the Test. Both must share the same Kind; mixed
// kinds are a caller bug, not a user error, and panic.
func Eval(op Operator, entryValue, testValue Value) (bool, error) {
	op = Canonicalize(op)
	if entryValue.Kind != testValue.Kind {
		panic(fmt.Sprintf("valtype: Eval called with mismatched kinds %s/%s", entryValue.Kind, testValue.Kind))
	}
	k := entryValue.Kind
	if !supports(k, op) {
		return false, &OperatorError{Kind: k, Op: op}
	}

	switch k {
	case KindString, KindPath:
		return evalString(op, entryValue.str, testValue.str)
	case KindNumber, KindSize, KindTime, KindDuration:
		return evalOrdered(op, entryValue.num, testValue.num)
	case KindMode:
		return evalMode(op, entryValue.mode, testValue.mode)
	case KindFileType:
		return entryValue.ft == testValue.ft, nil
	case KindBool:
		return entryValue.b == testValue.b, nil
	case KindList:
		return evalList(op, entryValue.list, testValue.str, testValue.list)
	default:
		return false, fmt.Errorf("valtype: unevaluable kind %s", k)
	}
}

func evalString(op Operator, entry, test string) (bool, error) {
	switch op {
	case OpEq:
		if foldForCompare(test) {
			entry, test = strings.ToLower(entry), strings.ToLower(test)
		}
		return entry == test, nil
	case OpIn:
		if foldForCompare(test) {
			entry, test = strings.ToLower(entry), strings.ToLower(test)
		}
		return strings.Contains(entry, test), nil
	case OpRe:
		// regex case sensitivity is the pattern's own concern (inline
		// `(?i)`); -c's fold policy does not rewrite a user's pattern.
		re, err := compileRegex(test)
		if err != nil {
			return false, err
		}
		return re.MatchString(entry), nil
	case OpGl:
		// gitignore-style glob matching is always case-sensitive on a
		// case-sensitive filesystem, independent of -c.
		return globMatch(test, entry), nil
	default:
		return false, &OperatorError{Op: op}
	}
}

func evalOrdered(op Operator, entry, test int64) (bool, error) {
	switch op {
	case OpEq:
		return entry == test, nil
	case OpGt:
		return entry > test, nil
	case OpLt:
		return entry < test, nil
	case OpGe:
		return entry >= test, nil
	case OpLe:
		return entry <= test, nil
	default:
		return false, &OperatorError{Op: op}
	}
}

func evalMode(op Operator, entry, test uint16) (bool, error) {
	switch op {
	case OpEq:
		return entry == test, nil
	case OpIn: // subset-of: every bit in test is set in entry
		return entry&test == test, nil
	case OpRe: // any-of: at least one bit in test is set in entry
		return entry&test != 0, nil
	default:
		return false, &OperatorError{Op: op}
	}
}

func evalList(op Operator, entry []string, testStr string, testList []string) (bool, error) {
	fold := foldForCompare(testStr)
	switch op {
	case OpEq:
		if len(entry) != len(testList) {
			return false, nil
		}
		for i := range entry {
			a, b := entry[i], testList[i]
			if fold {
				a, b = strings.ToLower(a), strings.ToLower(b)
			}
			if a != b {
				return false, nil
			}
		}
		return true, nil
	case OpIn:
		test := testStr
		if fold {
			test = strings.ToLower(test)
		}
		for _, el := range entry {
			if fold {
				el = strings.ToLower(el)
			}
			if strings.Contains(el, test) {
				return true, nil
			}
		}
		return false, nil
	case OpRe:
		re, err := compileRegex(testStr)
		if err != nil {
			return false, err
		}
		for _, el := range entry {
			if re.MatchString(el) {
				return true, nil
			}
		}
		return false, nil
	case OpGl:
		for _, el := range entry {
			if globMatch(testStr, el) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, &OperatorError{Op: op}
	}
}

// globMatch implements the % operator's glob semantics (spec §6): plain
// filepath.Match for simple patterns, doublestar for "**" patterns — the
// same library the ignore engine uses for gitignore-flavored matching
// (spec §4.I).
func globMatch(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		ok, err := doublestar.Match(pattern, path)
		return err == nil && ok
	}
	ok, _ := filepath.Match(pattern, path)
	return ok
}
