package objidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(t *testing.T, record any) identity {
	t.Helper()
	id, err := identityOf(record)
	require.NoError(t, err)
	return id
}

func TestIdentityOf(t *testing.T) {
	a, b := &person{Name: "x"}, &person{Name: "x"}
	ia, err := identityOf(a)
	require.NoError(t, err)
	ib, err := identityOf(b)
	require.NoError(t, err)
	assert.NotEqual(t, ia, ib, "value-equal records are distinct")

	ia2, _ := identityOf(a)
	assert.Equal(t, ia, ia2)

	// a struct and its first field share an address
	ii, err := identityOf(&a.Name)
	require.NoError(t, err)
	assert.NotEqual(t, ia, ii)

	m := map[string]any{}
	_, err = identityOf(m)
	assert.NoError(t, err)

	for _, bad := range []any{nil, person{}, 42, (*person)(nil), map[string]any(nil)} {
		_, err := identityOf(bad)
		assert.ErrorIs(t, err, ErrInvalidRecord, "%T", bad)
	}
}

func TestRegistry(t *testing.T) {
	reg := newRegistry[*person]()
	a, b, c := &person{Name: "a"}, &person{Name: "b"}, &person{Name: "c"}
	register := func(p *person) (uint64, bool) {
		return reg.register(p, testIdentity(t, p))
	}

	ka, isNew := register(a)
	assert.True(t, isNew)
	assert.Equal(t, uint64(1), ka)
	kb, _ := register(b)
	assert.Equal(t, uint64(2), kb)

	again, isNew := register(a)
	assert.False(t, isNew)
	assert.Equal(t, ka, again)
	assert.Equal(t, 2, reg.len())

	r, ok := reg.resolve(kb)
	require.True(t, ok)
	assert.Same(t, b, r)

	require.NoError(t, reg.unregister(ka))
	_, ok = reg.keyOf(testIdentity(t, a))
	assert.False(t, ok)
	assert.ErrorIs(t, reg.unregister(ka), ErrNotFound)

	kc, _ := register(c)
	assert.Equal(t, uint64(3), kc, "keys are never reused")
	ka2, isNew := register(a)
	assert.True(t, isNew)
	assert.Equal(t, uint64(4), ka2)

	assert.Equal(t, []*person{b, c, a}, reg.snapshot())
}
