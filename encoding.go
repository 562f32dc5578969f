package objidx

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/andreyvit/objidx/expr"
)

// encodeRow serializes projected values as a msgpack array. Nulls are nil;
// other values use the native msgpack type of their kind.
func encodeRow(buf []byte, vals []expr.Value) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	err := encodeRowValues(enc, vals)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode row using MsgPack: %w", err))
	}
	return bb.Buf
}

func encodeRowValues(enc *msgpack.Encoder, vals []expr.Value) error {
	if err := enc.EncodeArrayLen(len(vals)); err != nil {
		return err
	}
	for _, v := range vals {
		var err error
		switch v.Kind {
		case expr.KindNull:
			err = enc.EncodeNil()
		case expr.KindInt64:
			err = enc.EncodeInt(v.I64)
		case expr.KindFloat64:
			err = enc.EncodeFloat64(v.F64)
		case expr.KindBool:
			err = enc.EncodeBool(v.B)
		case expr.KindString:
			err = enc.EncodeString(v.S)
		default:
			err = fmt.Errorf("unsupported value kind %v", v.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeRow is the inverse of encodeRow. The schema decides how each
// non-null element is read.
func decodeRow(buf []byte, scm *Schema) ([]expr.Value, error) {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	vals, err := decodeRowValues(dec, scm)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(buf, len(buf)-r.Len(), err, "failed to decode msgpack row")
	}
	return vals, nil
}

func decodeRowValues(dec *msgpack.Decoder, scm *Schema) ([]expr.Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n != scm.Len() {
		return nil, fmt.Errorf("row has %d values, schema has %d fields", n, scm.Len())
	}
	vals := make([]expr.Value, n)
	for i := range vals {
		code, err := dec.PeekCode()
		if err != nil {
			return nil, err
		}
		if code == msgpcode.Nil {
			if err := dec.DecodeNil(); err != nil {
				return nil, err
			}
			continue
		}
		switch scm.fields[i].Type {
		case Int64:
			v, err := dec.DecodeInt64()
			if err != nil {
				return nil, err
			}
			vals[i] = expr.Int(v)
		case Float64:
			v, err := dec.DecodeFloat64()
			if err != nil {
				return nil, err
			}
			vals[i] = expr.Float(v)
		case Bool:
			v, err := dec.DecodeBool()
			if err != nil {
				return nil, err
			}
			vals[i] = expr.Bool(v)
		case String:
			v, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			vals[i] = expr.String(v)
		}
	}
	return vals, nil
}
