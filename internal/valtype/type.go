package valtype

import "time"

// ParseOptions carries the small amount of ambient state a few literal
// grammars need: --si flips the size unit default, and time-only literals
// resolve against "now" to fill in today's date.
type ParseOptions struct {
	SI  bool
	Now time.Time
}

// Parse dispatches to the Kind-specific literal parser (spec §4.A). It is
// the single entry point the Evaluator's binder uses once a Test's
// attribute has been resolved against the Registry and its Kind is known.
func Parse(k Kind, s string, opts ParseOptions) (Value, error) {
	switch k {
	case KindString:
		return NewString(s), nil
	case KindPath:
		return NewPath(s), nil
	case KindNumber:
		return parseNumber(s)
	case KindSize:
		return ParseSize(s, opts.SI)
	case KindTime:
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		return ParseTime(s, now)
	case KindDuration:
		return ParseDuration(s)
	case KindMode:
		return ParseMode(s)
	case KindFileType:
		return ParseFileType(s)
	case KindBool:
		return ParseBool(s)
	case KindList:
		// A literal list value is the input split on commas;
		// providers build richer lists directly via NewList.
		return NewList(splitList(s)), nil
	default:
		return Value{}, parseErr(k, s, "unparseable kind")
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func parseNumber(s string) (Value, error) {
	n, ok := parseInt(s)
	if !ok {
		return Value{}, parseErr(KindNumber, s, "expected an integer")
	}
	return NewNumber(n), nil
}

func parseInt(s string) (int64, bool) {
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		i = 1
	}
	if i == len(s) {
		return 0, false
	}
	var n int64
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
