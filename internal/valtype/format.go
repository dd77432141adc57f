package valtype

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Modifier selects an alternate output rendering for a formatted field
// (spec §4.A). The zero value means "no modifier".
type Modifier byte

const (
	ModNone  Modifier = 0
	ModHuman Modifier = 'h' // human size
	ModHex   Modifier = 'x' // hex
	ModOctal Modifier = 'o' // octal
	ModDropN Modifier = 'n' // drop null from output (Sink-level, not Format)
	ModNat   Modifier = 'v' // natural/version sort key (sort-key derivation only)
)

var sizeUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// fileTypeNames maps the single-letter codes NewFileType accepts to the
// long-form words a record or count tally renders (e.g. "type[directory]=3",
// not "type[d]=3"). Test tokens (`type=f`) still parse the short code;
// only the rendered side is spelled out.
var fileTypeNames = map[byte]string{
	'f': "file",
	'd': "directory",
	'l': "symlink",
	'p': "fifo",
	's': "socket",
	'c': "char_device",
	'b': "block_device",
}

func fileTypeName(code byte) string {
	if name, ok := fileTypeNames[code]; ok {
		return name
	}
	return string(code)
}

func humanSize(bytes int64) string {
	if bytes < 1024 {
		return strconv.FormatInt(bytes, 10) + "B"
	}
	f := float64(bytes)
	unit := 0
	for f >= 1024 && unit < len(sizeUnits)-1 {
		f /= 1024
		unit++
	}
	return strconv.FormatFloat(f, 'f', 1, 64) + sizeUnits[unit]
}

// Format renders a Value as the string a Record sink field emits,
// applying the given output modifier where it is meaningful for this
// Kind (spec §4.A; unsupported modifiers are ignored rather than erroring,
// matching the teacher's permissive CLI-flag handling style).
func Format(v Value, mod Modifier) (string, error) {
	switch v.Kind {
	case KindNull:
		return "", nil
	case KindString, KindPath:
		return v.str, nil
	case KindBool:
		if v.b {
			return "true", nil
		}
		return "false", nil
	case KindNumber:
		if mod == ModHex {
			return fmt.Sprintf("0x%x", v.num), nil
		}
		if mod == ModOctal {
			return fmt.Sprintf("0%o", v.num), nil
		}
		return strconv.FormatInt(v.num, 10), nil
	case KindSize:
		if mod == ModHuman {
			return humanSize(v.num), nil
		}
		if mod == ModHex {
			return fmt.Sprintf("0x%x", v.num), nil
		}
		return strconv.FormatInt(v.num, 10), nil
	case KindTime:
		return time.Unix(v.num, 0).UTC().Format("2006-01-02T15:04:05Z"), nil
	case KindDuration:
		return strconv.FormatInt(v.num, 10) + "s", nil
	case KindMode:
		if mod == ModHex {
			return fmt.Sprintf("0x%x", v.mode), nil
		}
		return fmt.Sprintf("0%o", v.mode), nil
	case KindFileType:
		return fileTypeName(v.ft), nil
	case KindList:
		return strings.Join(v.list, ","), nil
	default:
		return "", fmt.Errorf("valtype: cannot format kind %s", v.Kind)
	}
}
