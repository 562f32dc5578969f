package objidx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/objidx/expr"
)

func TestRowEncoding(t *testing.T) {
	scm := testSchema(t)
	rows := [][]expr.Value{
		{expr.Int(3), expr.Float(2.5), expr.Bool(true), expr.String("héllo\x00")},
		{expr.Null, expr.Null, expr.Null, expr.Null},
		{expr.Int(math.MinInt64), expr.Float(math.Inf(-1)), expr.Bool(false), expr.String("")},
		{expr.Int(math.MaxInt64), expr.Float(0.125), expr.Null, expr.String("x")},
	}
	for _, vals := range rows {
		raw := encodeRow(nil, vals)
		got, err := decodeRow(raw, scm)
		require.NoError(t, err)
		assert.Equal(t, vals, got)
	}
}

func TestRowEncodingIsMsgpackArray(t *testing.T) {
	raw := encodeRow(nil, []expr.Value{expr.Int(1), expr.Null, expr.String("a")})
	var decoded []any
	require.NoError(t, msgpack.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 3)
	assert.EqualValues(t, 1, decoded[0])
	assert.Nil(t, decoded[1])
	assert.Equal(t, "a", decoded[2])
}

func TestRowDecodingErrors(t *testing.T) {
	scm := testSchema(t)

	_, err := decodeRow(encodeRow(nil, []expr.Value{expr.Int(1)}), scm)
	assert.ErrorContains(t, err, "row has 1 values, schema has 4 fields")

	raw := encodeRow(nil, []expr.Value{expr.String("x"), expr.Null, expr.Null, expr.Null})
	_, err = decodeRow(raw, scm)
	var de *DataError
	assert.ErrorAs(t, err, &de)

	_, err = decodeRow([]byte{0x94}, scm)
	assert.Error(t, err)
}
