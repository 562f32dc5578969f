package objidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/objidx/expr"
)

func TestChooseIndex(t *testing.T) {
	scm := testSchema(t)
	specs, err := scm.indexSpecs([][]string{{"x"}, {"s", "y"}, {"b"}})
	require.NoError(t, err)

	tests := []struct {
		where  string
		index  string
		eq     int
		ranged bool
	}{
		{"x == 3", "x", 1, false},
		{"3 == x", "x", 1, false},
		{"x > 3", "x", 0, true},
		{"3 < x", "x", 0, true},
		{"x IS NULL", "x", 1, false},
		{"s == 'a'", "s,y", 1, false},
		{"s == 'a' and y < 2", "s,y", 1, true},
		{"x == 1 and s == 'a' and y > 0 and y <= 5", "s,y", 1, true},
		{"y < 2", "", 0, false},
		{"x != 3", "", 0, false},
		{"x IS NOT NULL", "", 0, false},
		{"x == 1 or b == true", "", 0, false},
		{"not x == 1", "", 0, false},
		{"x == y", "", 0, false},
		{"x == null", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			e, err := Where(tt.where).lower(scm)
			require.NoError(t, err)
			p := chooseIndex(e, scm.Len(), specs)
			if tt.index == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.index, p.spec.Name)
			assert.Equal(t, tt.eq, p.eqCols)
			assert.Equal(t, tt.ranged, p.rangeTag != 0)
		})
	}
}

func TestIndexPlanBounds(t *testing.T) {
	scm := testSchema(t)
	specs, err := scm.indexSpecs(nil)
	require.NoError(t, err)

	e, err := Where("x > 1 and x >= 3 and x < 10 and x <= 7").lower(scm)
	require.NoError(t, err)
	p := chooseIndex(e, scm.Len(), specs)
	require.NotNil(t, p)

	key := func(x int64) []byte {
		return appendIndexKey(nil, []expr.Value{expr.Int(x)}, []int{0}, 1)
	}
	assert.Equal(t, key(3)[:9], p.lower, "tightest lower bound")
	for x, want := range map[int64]bool{3: true, 5: true, 7: true, 8: false} {
		ok, err := p.accepts(key(x))
		require.NoError(t, err)
		assert.Equal(t, want, ok, "x = %d", x)
	}

	// an upper bound alone seeks to the first value of its family, past nulls
	e, err = Where("s < 'm'").lower(scm)
	require.NoError(t, err)
	p = chooseIndex(e, scm.Len(), specs)
	require.NotNil(t, p)
	assert.Equal(t, []byte{tagString}, p.lower)
}
