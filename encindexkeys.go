package objidx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/andreyvit/objidx/expr"
)

// Index keys are order-preserving encodings of column tuples followed by the
// 8-byte surrogate key. Each element starts with a tag; nulls sort first,
// then bools, numbers and strings. Elements are self-delimiting, so a
// bytewise comparison of two keys orders them by their tuples.
const (
	tagNull   byte = 0x01
	tagBool   byte = 0x02
	tagNumber byte = 0x03
	tagString byte = 0x04

	strEscape     byte = 0xFF // 0x00 0xFF is a literal zero byte
	strTerminator byte = 0x01 // 0x00 0x01 ends a string
)

func familyTag(f expr.Family) byte {
	switch f {
	case expr.FamilyBool:
		return tagBool
	case expr.FamilyNumeric:
		return tagNumber
	case expr.FamilyString:
		return tagString
	default:
		return tagNull
	}
}

// appendIndexElem appends one tuple element. Int64 values are encoded as
// float64, so large integers may collide; index scans recheck every row.
func appendIndexElem(buf []byte, v expr.Value) []byte {
	switch v.Kind {
	case expr.KindNull:
		return append(buf, tagNull)
	case expr.KindBool:
		var b byte
		if v.B {
			b = 1
		}
		return append(buf, tagBool, b)
	case expr.KindInt64, expr.KindFloat64:
		buf = append(buf, tagNumber)
		return appendUint64(buf, orderedFloatBits(v.Float()))
	case expr.KindString:
		buf = ensureCapacity(buf, len(buf)+len(v.S)+3)
		buf = append(buf, tagString)
		for i := 0; i < len(v.S); i++ {
			c := v.S[i]
			if c == 0 {
				buf = append(buf, 0, strEscape)
			} else {
				buf = append(buf, c)
			}
		}
		return append(buf, 0, strTerminator)
	default:
		panic(fmt.Errorf("cannot encode %v", v.Kind))
	}
}

func orderedFloatBits(f float64) uint64 {
	if f == 0 {
		f = 0 // fold -0 into +0
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func floatFromOrderedBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

// appendIndexKey appends the full index entry key for the given columns of
// a row.
func appendIndexKey(buf []byte, vals []expr.Value, cols []int, key uint64) []byte {
	for _, col := range cols {
		buf = appendIndexElem(buf, vals[col])
	}
	return appendUint64(buf, key)
}

// indexElemLen returns the length of the element at the start of data.
func indexElemLen(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, dataErrf(data, 0, nil, "missing index element")
	}
	switch data[0] {
	case tagNull:
		return 1, nil
	case tagBool:
		if len(data) < 2 {
			return 0, dataErrf(data, 1, nil, "truncated bool")
		}
		return 2, nil
	case tagNumber:
		if len(data) < 9 {
			return 0, dataErrf(data, 1, nil, "truncated number")
		}
		return 9, nil
	case tagString:
		for i := 1; i+1 < len(data); i++ {
			if data[i] != 0 {
				continue
			}
			switch data[i+1] {
			case strTerminator:
				return i + 2, nil
			case strEscape:
				i++
			default:
				return 0, dataErrf(data, i+1, nil, "invalid string escape %02x", data[i+1])
			}
		}
		return 0, dataErrf(data, len(data), nil, "unterminated string")
	default:
		return 0, dataErrf(data, 0, nil, "invalid index element tag %02x", data[0])
	}
}

func decodeIndexElem(data []byte) (expr.Value, int, error) {
	n, err := indexElemLen(data)
	if err != nil {
		return expr.Null, 0, err
	}
	switch data[0] {
	case tagBool:
		return expr.Bool(data[1] != 0), n, nil
	case tagNumber:
		return expr.Float(floatFromOrderedBits(binary.BigEndian.Uint64(data[1:9]))), n, nil
	case tagString:
		body := data[1 : n-2]
		if bytes.IndexByte(body, 0) < 0 {
			return expr.String(string(body)), n, nil
		}
		s := make([]byte, 0, len(body))
		for i := 0; i < len(body); i++ {
			s = append(s, body[i])
			if body[i] == 0 {
				i++
			}
		}
		return expr.String(string(s)), n, nil
	default:
		return expr.Null, n, nil
	}
}

// decodeIndexKey splits an index entry key into its tuple and surrogate key.
// Numbers come back as Float64.
func decodeIndexKey(data []byte, ncols int) ([]expr.Value, uint64, error) {
	vals := make([]expr.Value, 0, ncols)
	d := makeByteDecoder(data)
	for range ncols {
		v, n, err := decodeIndexElem(d.Buf)
		if err != nil {
			return nil, 0, dataErrf(data, d.Off(), err, "bad index key")
		}
		vals = append(vals, v)
		d.Buf = d.Buf[n:]
	}
	key, err := d.Uint64()
	if err != nil {
		return nil, 0, err
	}
	if len(d.Buf) != 0 {
		return nil, 0, dataErrf(data, d.Off(), nil, "trailing bytes after index key")
	}
	return vals, key, nil
}

func indexKeySurrogate(k []byte) uint64 {
	return decodeKey(k[len(k)-8:])
}
