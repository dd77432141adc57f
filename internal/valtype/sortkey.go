package valtype

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SortKey is a comparable projection of a Value, used by `-S`/`-R` to
// order the Sink's buffered result set (spec §4.A, §4.H).
type SortKey struct {
	numeric bool
	n       int64
	s       string
	// segs holds the natural-sort decomposition used when ModNat is
	// requested: alternating non-digit/digit runs, digit runs compared
	// numerically so "file2" sorts before "file10".
	segs []string
}

var naturalSplitRe = regexp.MustCompile(`[0-9]+|[^0-9]+`)

// DeriveSortKey builds a SortKey for v. The "v" (natural/version) modifier
// only applies to string/path/list kinds; it is ignored for other kinds
// since their native ordering is already value-correct (spec §4.A).
func DeriveSortKey(v Value, mod Modifier) (SortKey, error) {
	switch v.Kind {
	case KindNumber, KindSize, KindTime, KindDuration:
		return SortKey{numeric: true, n: v.num}, nil
	case KindMode:
		return SortKey{numeric: true, n: int64(v.mode)}, nil
	case KindBool:
		n := int64(0)
		if v.b {
			n = 1
		}
		return SortKey{numeric: true, n: n}, nil
	case KindFileType:
		return SortKey{s: string(v.ft)}, nil
	case KindString, KindPath:
		if mod == ModNat {
			return SortKey{segs: naturalSplitRe.FindAllString(v.str, -1)}, nil
		}
		return SortKey{s: v.str}, nil
	case KindList:
		joined := strings.Join(v.list, ",")
		if mod == ModNat {
			return SortKey{segs: naturalSplitRe.FindAllString(joined, -1)}, nil
		}
		return SortKey{s: joined}, nil
	case KindNull:
		return SortKey{}, nil
	default:
		return SortKey{}, fmt.Errorf("valtype: cannot derive sort key for kind %s", v.Kind)
	}
}

// Less orders two SortKeys of the same derivation shape. A Null-derived
// key (the zero value) compares like an empty string key: before any
// non-empty string, and neither before nor after a numeric key. -R
// reverses the whole order, null placement included.
func (k SortKey) Less(other SortKey) bool {
	if k.segs != nil || other.segs != nil {
		return lessNatural(k.segs, other.segs)
	}
	if k.numeric {
		return k.n < other.n
	}
	return k.s < other.s
}

func lessNatural(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aErr := strconv.ParseInt(a[i], 10, 64)
		bn, bErr := strconv.ParseInt(b[i], 10, 64)
		if aErr == nil && bErr == nil {
			if an != bn {
				return an < bn
			}
			continue
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// CountPolicy controls how `--count` accumulates values for an attribute
// (spec §4.A, §4.H).
type CountPolicy int

const (
	// CountNotCountable marks a type --count must reject (spec §9, Open
	// Question (a): resolved as a hard AttributeError, exit 11).
	CountNotCountable CountPolicy = iota
	CountSum
	CountTally
)

// Policy returns the count policy for a Kind (spec §4.A): size and
// duration vary too widely to tally usefully and are summed; path and
// time are not countable at all; everything else is tallied by distinct
// value.
func Policy(k Kind) CountPolicy {
	switch k {
	case KindSize, KindDuration:
		return CountSum
	case KindPath, KindTime:
		return CountNotCountable
	default:
		return CountTally
	}
}
