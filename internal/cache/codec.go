package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/ff/internal/valtype"
)

// record wraps a cached attribute computation together with the entry
// metadata it was computed against, so --clean-cache can re-stat the
// original path without needing to reverse a hash (spec §4.D).
type record struct {
	path    string
	mtimeNs int64
	size    int64
	failed  bool // true if the provider's process() returned an error
	errMsg  string
	value   valtype.Value
}

// encodeKey produces the fixed-size bbolt key for (path, mtime-ns, size,
// attribute). It is a 64-bit hash rather than the literal tuple because
// bbolt benefits from small, fixed-width keys for B+tree fan-out; the
// literal path is carried in the value instead (see record) so vacuum and
// --clean-cache can recover it.
func encodeKey(path string, mtimeNs, size int64, attr string) []byte {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(mtimeNs))
	_, _ = h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(size))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(attr)
	sum := h.Sum64()

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, sum)
	return key
}

// encodeRecord serializes a record to bytes: the originating
// path/mtime/size for later re-validation, then a discriminator byte, then
// a Kind-tagged Value payload (or an error message if failed).
func encodeRecord(r record) []byte {
	var buf []byte
	buf = appendUvarint(buf, uint64(len(r.path)))
	buf = append(buf, r.path...)
	buf = appendVarint(buf, r.mtimeNs)
	buf = appendVarint(buf, r.size)

	if r.failed {
		buf = append(buf, 1)
		buf = appendUvarint(buf, uint64(len(r.errMsg)))
		buf = append(buf, r.errMsg...)
		return buf
	}
	buf = append(buf, 0)
	buf = append(buf, byte(r.value.Kind))
	return appendValuePayload(buf, r.value)
}

func appendValuePayload(buf []byte, v valtype.Value) []byte {
	switch v.Kind {
	case valtype.KindString, valtype.KindPath:
		buf = appendUvarint(buf, uint64(len(v.Str())))
		buf = append(buf, v.Str()...)
	case valtype.KindNumber, valtype.KindSize, valtype.KindTime, valtype.KindDuration:
		buf = appendVarint(buf, v.Num())
	case valtype.KindMode:
		var m [2]byte
		binary.BigEndian.PutUint16(m[:], v.Mode())
		buf = append(buf, m[:]...)
	case valtype.KindFileType:
		buf = append(buf, v.FileTypeCode())
	case valtype.KindBool:
		b := byte(0)
		if v.Bool() {
			b = 1
		}
		buf = append(buf, b)
	case valtype.KindList:
		items := v.List()
		buf = appendUvarint(buf, uint64(len(items)))
		for _, it := range items {
			buf = appendUvarint(buf, uint64(len(it)))
			buf = append(buf, it...)
		}
	case valtype.KindNull:
		// no payload
	}
	return buf
}

// decodeRecord is the inverse of encodeRecord.
func decodeRecord(data []byte) (record, error) {
	var r record
	n, rest, err := readString(data)
	if err != nil {
		return record{}, err
	}
	r.path = n
	mtimeNs, rest, err := readVarint(rest)
	if err != nil {
		return record{}, err
	}
	r.mtimeNs = mtimeNs
	size, rest, err := readVarint(rest)
	if err != nil {
		return record{}, err
	}
	r.size = size

	if len(rest) == 0 {
		return record{}, fmt.Errorf("cache: truncated record")
	}
	discriminator := rest[0]
	rest = rest[1:]

	if discriminator == 1 {
		msg, _, err := readString(rest)
		if err != nil {
			return record{}, err
		}
		r.failed = true
		r.errMsg = msg
		return r, nil
	}

	if len(rest) == 0 {
		return record{}, fmt.Errorf("cache: truncated record value")
	}
	kind := valtype.Kind(rest[0])
	rest = rest[1:]
	v, err := readValuePayload(kind, rest)
	if err != nil {
		return record{}, err
	}
	r.value = v
	return r, nil
}

func readValuePayload(kind valtype.Kind, rest []byte) (valtype.Value, error) {
	switch kind {
	case valtype.KindString:
		s, _, err := readString(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewString(s), nil
	case valtype.KindPath:
		s, _, err := readString(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewPath(s), nil
	case valtype.KindNumber:
		n, _, err := readVarint(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewNumber(n), nil
	case valtype.KindSize:
		n, _, err := readVarint(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewSize(n), nil
	case valtype.KindTime:
		n, _, err := readVarint(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewTime(n), nil
	case valtype.KindDuration:
		n, _, err := readVarint(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		return valtype.NewDuration(n), nil
	case valtype.KindMode:
		if len(rest) < 2 {
			return valtype.Value{}, fmt.Errorf("cache: truncated mode")
		}
		return valtype.NewMode(binary.BigEndian.Uint16(rest)), nil
	case valtype.KindFileType:
		if len(rest) < 1 {
			return valtype.Value{}, fmt.Errorf("cache: truncated filetype")
		}
		return valtype.NewFileType(rest[0])
	case valtype.KindBool:
		if len(rest) < 1 {
			return valtype.Value{}, fmt.Errorf("cache: truncated bool")
		}
		return valtype.NewBool(rest[0] != 0), nil
	case valtype.KindList:
		count, rest, err := readUvarint(rest)
		if err != nil {
			return valtype.Value{}, err
		}
		items := make([]string, 0, count)
		for i := uint64(0); i < count; i++ {
			var s string
			s, rest, err = readString(rest)
			if err != nil {
				return valtype.Value{}, err
			}
			items = append(items, s)
		}
		return valtype.NewList(items), nil
	case valtype.KindNull:
		return valtype.Null, nil
	default:
		return valtype.Value{}, fmt.Errorf("cache: unknown kind byte %d", kind)
	}
}

// --- small varint helpers (avoids pulling in encoding/gob or protobuf for
// a handful of fixed shapes) ---

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil, fmt.Errorf("cache: malformed uvarint")
	}
	return v, buf[n:], nil
}

func readVarint(buf []byte) (int64, []byte, error) {
	v, n := binary.Varint(buf)
	if n <= 0 {
		return 0, nil, fmt.Errorf("cache: malformed varint")
	}
	return v, buf[n:], nil
}

func readString(buf []byte) (string, []byte, error) {
	length, rest, err := readUvarint(buf)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < length {
		return "", nil, fmt.Errorf("cache: truncated string")
	}
	return string(rest[:length]), rest[length:], nil
}
