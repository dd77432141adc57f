package sink

import (
	"bytes"
	"encoding/json"

	"github.com/standardbeagle/ff/internal/valtype"
	"github.com/standardbeagle/ff/internal/walker"
)

// jsonValue converts a Value to the JSON-native Go value spec §6's "JSON
// shape" table specifies: integers for number/size/time/duration/mode,
// strings for string/path, arrays of strings for list, booleans for
// boolean, and nil (null) for a missing attribute.
func jsonValue(v valtype.Value, mod valtype.Modifier) interface{} {
	switch v.Kind {
	case valtype.KindNull:
		return nil
	case valtype.KindString, valtype.KindPath:
		return v.Str()
	case valtype.KindNumber, valtype.KindSize, valtype.KindTime, valtype.KindDuration:
		return v.Num()
	case valtype.KindMode:
		return int64(v.Mode())
	case valtype.KindFileType:
		return string(v.FileTypeCode())
	case valtype.KindBool:
		return v.Bool()
	case valtype.KindList:
		return v.List()
	default:
		return nil
	}
}

// buildJSONObject renders one Result's `-o` fields as a JSON object
// literal, preserving the caller's field order — encoding/json's
// map[string]any path would alphabetize keys, which spec §8 scenario 3's
// `{"name":"baz","size":10}` ordering (matching the `-o name,size` list,
// not alphabetical) rules out, so the object is hand-assembled field by
// field instead.
func buildJSONObject(fields []OutputField, r walker.Result) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v, _ := r.Ctx.GetResolved(f.Resolved) // --json implies --all: missing becomes null
		val, err := json.Marshal(jsonValue(v, f.Modifier))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Sink) emitJSONArray(results []walker.Result) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range results {
		if i > 0 {
			buf.WriteByte(',')
		}
		obj, err := buildJSONObject(s.cfg.Output, r)
		if err != nil {
			return err
		}
		buf.Write(obj)
	}
	buf.WriteByte(']')
	buf.WriteByte('\n')
	return s.write(buf.Bytes())
}

func (s *Sink) emitJSONLine(r walker.Result) error {
	obj, err := buildJSONObject(s.cfg.Output, r)
	if err != nil {
		return err
	}
	return s.write(append(obj, '\n'))
}
