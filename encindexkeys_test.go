package objidx

import (
	"bytes"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/objidx/expr"
)

func TestIndexElemOrder(t *testing.T) {
	ordered := []expr.Value{
		expr.Null,
		expr.Bool(false),
		expr.Bool(true),
		expr.Float(math.Inf(-1)),
		expr.Int(-1 << 40),
		expr.Float(-2.5),
		expr.Int(-1),
		expr.Float(-1e-300),
		expr.Int(0),
		expr.Float(1e-300),
		expr.Int(1),
		expr.Float(1.5),
		expr.Int(1 << 40),
		expr.Float(math.Inf(1)),
		expr.String(""),
		expr.String("\x00"),
		expr.String("\x00\x00"),
		expr.String("\x00a"),
		expr.String("a"),
		expr.String("a\x00"),
		expr.String("a\x01"),
		expr.String("ab"),
		expr.String("b"),
		expr.String("\xff"),
	}
	enc := make([][]byte, len(ordered))
	for i, v := range ordered {
		enc[i] = appendIndexElem(nil, v)
	}
	for i := 1; i < len(enc); i++ {
		assert.Negative(t, bytes.Compare(enc[i-1], enc[i]), "%v should sort before %v", ordered[i-1], ordered[i])
	}
	assert.True(t, slices.IsSortedFunc(enc, bytes.Compare))
}

func TestIndexElemNegativeZero(t *testing.T) {
	assert.Equal(t, appendIndexElem(nil, expr.Float(0)), appendIndexElem(nil, expr.Float(math.Copysign(0, -1))))
	assert.Equal(t, appendIndexElem(nil, expr.Int(3)), appendIndexElem(nil, expr.Float(3)))
}

func TestIndexKeyDecode(t *testing.T) {
	vals := []expr.Value{expr.String("a\x00b"), expr.Int(7), expr.Null, expr.Bool(true)}
	k := appendIndexKey(nil, vals, []int{0, 1, 2, 3}, 42)

	got, key, err := decodeIndexKey(k, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), key)
	assert.Equal(t, uint64(42), indexKeySurrogate(k))
	assert.Equal(t, []expr.Value{expr.String("a\x00b"), expr.Float(7), expr.Null, expr.Bool(true)}, got)

	n, err := indexElemLen(k)
	require.NoError(t, err)
	assert.Equal(t, len(appendIndexElem(nil, vals[0])), n)
}

func TestIndexKeyDecodeErrors(t *testing.T) {
	_, _, err := decodeIndexKey([]byte{tagString, 'a'}, 1)
	assert.ErrorContains(t, err, "unterminated string")

	_, _, err = decodeIndexKey([]byte{0x09}, 1)
	assert.ErrorContains(t, err, "invalid index element tag")

	_, _, err = decodeIndexKey([]byte{tagNull, 1, 2}, 1)
	assert.ErrorContains(t, err, "not enough data")
}

func TestIndexKeyTupleOrder(t *testing.T) {
	cols := []int{0, 1}
	a := appendIndexKey(nil, []expr.Value{expr.String("a"), expr.Int(9)}, cols, 1)
	b := appendIndexKey(nil, []expr.Value{expr.String("a"), expr.Int(10)}, cols, 1)
	c := appendIndexKey(nil, []expr.Value{expr.String("ab"), expr.Int(-5)}, cols, 1)
	assert.Negative(t, bytes.Compare(a, b))
	assert.Negative(t, bytes.Compare(b, c))
}
