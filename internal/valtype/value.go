// Package valtype implements ff's closed type system: the tagged Value
// variant, the per-kind operator/parse/format tables, and sort-key
// derivation described in spec §3 and §4.A.
package valtype

import "fmt"

// Kind identifies one of the tagged variants a Value can hold. The set is
// closed: every Attribute declares exactly one Kind at registration, so an
// "unknown type" is unrepresentable.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindPath
	KindNumber
	KindSize
	KindTime
	KindDuration
	KindMode
	KindFileType
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindPath:
		return "path"
	case KindNumber:
		return "number"
	case KindSize:
		return "size"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindMode:
		return "mode"
	case KindFileType:
		return "filetype"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a single tagged variant over {string, path, number, size, time,
// duration, mode, filetype, boolean, list-of-strings, null} (spec §3). Each
// concrete representation is as specified: time/duration in integer
// seconds, size in nonnegative bytes, mode as a 16-bit integer, list as an
// ordered sequence with duplicates allowed.
type Value struct {
	Kind Kind

	str  string   // string, path
	num  int64    // number, size (bytes), time (unix seconds), duration (seconds)
	mode uint16   // mode
	ft   byte     // filetype code: 'f','d','l','p','s','c','b'
	b    bool     // boolean
	list []string // list-of-strings
}

// Null is the absent-value marker: it compares unequal to any literal
// (spec §4.F) and is what a Context stores for an attribute a provider
// could not compute.
var Null = Value{Kind: KindNull}

func NewString(s string) Value   { return Value{Kind: KindString, str: s} }
func NewPath(s string) Value      { return Value{Kind: KindPath, str: s} }
func NewNumber(n int64) Value     { return Value{Kind: KindNumber, num: n} }
func NewSize(bytes int64) Value   { return Value{Kind: KindSize, num: bytes} }
func NewTime(unixSec int64) Value { return Value{Kind: KindTime, num: unixSec} }
func NewDuration(sec int64) Value { return Value{Kind: KindDuration, num: sec} }
func NewMode(m uint16) Value      { return Value{Kind: KindMode, mode: m} }
func NewBool(b bool) Value        { return Value{Kind: KindBool, b: b} }

func NewList(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{Kind: KindList, list: cp}
}

// NewFileType builds a filetype Value from a POSIX-find-style type code:
// f (regular), d (directory), l (symlink), p (fifo), s (socket),
// c (char device), b (block device).
func NewFileType(code byte) (Value, error) {
	switch code {
	case 'f', 'd', 'l', 'p', 's', 'c', 'b':
		return Value{Kind: KindFileType, ft: code}, nil
	default:
		return Value{}, fmt.Errorf("valtype: invalid filetype code %q", code)
	}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) Str() string  { return v.str }
func (v Value) Num() int64   { return v.num }
func (v Value) Mode() uint16 { return v.mode }
func (v Value) FileTypeCode() byte { return v.ft }
func (v Value) Bool() bool   { return v.b }
func (v Value) List() []string {
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Equal reports whether two values of the same Kind carry the same
// representation. Values of different Kind (including one null, one not)
// are never Equal — this is what makes a missing attribute compare
// unequal to any literal (spec §4.F).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString, KindPath:
		return v.str == other.str
	case KindNumber, KindSize, KindTime, KindDuration:
		return v.num == other.num
	case KindMode:
		return v.mode == other.mode
	case KindFileType:
		return v.ft == other.ft
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}
