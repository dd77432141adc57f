package valtype

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a user-input string that could not be parsed as a
// given Kind's literal grammar (spec §4.A, exit code 12 per §6 when it
// surfaces as a test-definition error).
type ParseError struct {
	Kind  Kind
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("valtype: cannot parse %q as %s: %s", e.Input, e.Kind, e.Msg)
}

func parseErr(k Kind, input, msg string) error {
	return &ParseError{Kind: k, Input: input, Msg: msg}
}

// ParseBool accepts {true,t,1,yes,y,on} / {false,f,0,no,n,off}, case
// insensitive (spec §4.A).
func ParseBool(s string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on":
		return NewBool(true), nil
	case "false", "f", "0", "no", "n", "off":
		return NewBool(false), nil
	default:
		return Value{}, parseErr(KindBool, s, "expected one of true/t/1/yes/y/on or false/f/0/no/n/off")
	}
}

var sizeRe = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([kmgtp]?)(i?)(b?)\s*$`)

var sizeExponent = map[string]int{"": 0, "k": 1, "m": 2, "g": 3, "t": 4, "p": 5}

// ParseSize accepts `<number>[K|M|G|T|P][i?]B?`. Single letters and the
// `-iB` spelling are base 1024; plain `-B` spellings are base 1000; si
// swaps which of those two is the default for a bare letter with neither
// suffix (spec §4.A).
func ParseSize(s string, si bool) (Value, error) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return Value{}, parseErr(KindSize, s, "expected <number>[K|M|G|T|P][i][B]")
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Value{}, parseErr(KindSize, s, "invalid numeric part")
	}
	unit := strings.ToLower(m[2])
	hasI := m[3] != ""
	hasB := m[4] != ""

	if unit == "" {
		return NewSize(int64(num)), nil
	}

	base := 1024.0
	switch {
	case hasI:
		base = 1024.0
	case hasB:
		base = 1000.0
	case si:
		base = 1000.0
	}

	exp := sizeExponent[unit]
	mult := 1.0
	for i := 0; i < exp; i++ {
		mult *= base
	}
	return NewSize(int64(num * mult)), nil
}

var durationPartRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)([smhdwMy]?)`)

var durationUnitSeconds = map[string]float64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 7 * 86400,
	"M": 30 * 86400,
	"y": 365 * 86400,
}

// ParseDuration sums `NNs|m|h|d|w|M|y` parts; a bare number with no unit
// letters anywhere in the string means minutes (spec §4.A).
func ParseDuration(s string) (Value, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}, parseErr(KindDuration, s, "empty duration")
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return NewDuration(int64(n * 60)), nil
	}

	matches := durationPartRe.FindAllStringSubmatch(trimmed, -1)
	if matches == nil {
		return Value{}, parseErr(KindDuration, s, "expected parts like 90s, 3h, 2d, 1w, 6M, 1y")
	}
	var total float64
	consumed := 0
	for _, m := range matches {
		consumed += len(m[0])
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Value{}, parseErr(KindDuration, s, "invalid numeric part")
		}
		unit := m[2]
		if unit == "" {
			return Value{}, parseErr(KindDuration, s, "missing unit on a duration part")
		}
		total += n * durationUnitSeconds[unit]
	}
	if consumed != len(strings.ReplaceAll(trimmed, " ", "")) {
		return Value{}, parseErr(KindDuration, s, "trailing garbage after duration parts")
	}
	return NewDuration(int64(total)), nil
}

// timePatterns are tried in order; the bare-epoch fallback is tried last.
var timePatterns = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102150405",
	"20060102",
	"15:04:05",
	"15:04",
}

// ParseTime accepts a fixed set of date/date-time/compact-digit/time-only
// patterns, or, as a last resort, a bare epoch integer (spec §4.A).
func ParseTime(s string, now time.Time) (Value, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range timePatterns {
		t, err := time.ParseInLocation(layout, trimmed, now.Location())
		if err != nil {
			continue
		}
		if layout == "15:04:05" || layout == "15:04" {
			t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
		}
		return NewTime(t.Unix()), nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return NewTime(n), nil
	}
	return Value{}, parseErr(KindTime, s, "expected a date, date-time, compact digits, time-only value, or bare epoch seconds")
}

// ParseMode accepts octal ("0755", "755") or POSIX-symbolic ("u=rwx,g=rx,o=r")
// permission grammar, matching `find -perm`'s value grammar (spec §4.A).
func ParseMode(s string) (Value, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}, parseErr(KindMode, s, "empty mode")
	}
	if isOctal(trimmed) {
		n, err := strconv.ParseUint(trimmed, 8, 16)
		if err != nil {
			return Value{}, parseErr(KindMode, s, "invalid octal mode")
		}
		return NewMode(uint16(n)), nil
	}
	m, err := parseSymbolicMode(trimmed)
	if err != nil {
		return Value{}, err
	}
	return NewMode(m), nil
}

func isOctal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '7' {
			return false
		}
	}
	return true
}

var bitFor = map[byte]uint16{
	'r': 0o4, 'w': 0o2, 'x': 0o1, 's': 0o1, 't': 0o1, 'X': 0o1,
}

// parseSymbolicMode applies a comma-separated list of who/op/perm clauses
// starting from mode 0 (spec's Open Question (c): no reference file is
// available to a parsed-literal test, so '-' and '+' behave like '=' —
// see DESIGN.md).
func parseSymbolicMode(s string) (uint16, error) {
	var mode uint16
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		idx := strings.IndexAny(clause, "+-=")
		if idx < 0 {
			return 0, parseErr(KindMode, s, "symbolic clause missing +, - or =")
		}
		who := clause[:idx]
		op := clause[idx]
		perms := clause[idx+1:]

		var mask uint16
		for _, w := range who {
			switch w {
			case 'u':
				mask |= 0o700
			case 'g':
				mask |= 0o070
			case 'o':
				mask |= 0o007
			case 'a':
				mask |= 0o777
			default:
				return 0, parseErr(KindMode, s, "unknown who specifier")
			}
		}
		if who == "" {
			mask = 0o777
		}

		var bits uint16
		for i := 0; i < len(perms); i++ {
			bit, ok := bitFor[perms[i]]
			if !ok {
				return 0, parseErr(KindMode, s, "unknown permission letter")
			}
			bits |= bit
		}
		// Expand the single-letter bit across u/g/o according to who.
		var applied uint16
		if mask&0o700 != 0 {
			applied |= bits << 6
		}
		if mask&0o070 != 0 {
			applied |= bits << 3
		}
		if mask&0o007 != 0 {
			applied |= bits
		}

		switch op {
		case '=':
			mode = (mode &^ mask) | applied
		case '+':
			mode |= applied
		case '-':
			mode &^= applied
		}
	}
	return mode, nil
}

// ParseFileType accepts a single POSIX-find type code.
func ParseFileType(s string) (Value, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) != 1 {
		return Value{}, parseErr(KindFileType, s, "expected a single type code: f,d,l,p,s,c,b")
	}
	return NewFileType(trimmed[0])
}
