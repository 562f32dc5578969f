package objidx

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/objidx/expr"
)

// fakeStore answers QueryKeys with a fixed number of matches and records the
// queries it saw.
type fakeStore struct {
	Store
	rows    int
	matches int
	err     error
	queries []Query
}

func (s *fakeStore) Count() int { return s.rows }

func (s *fakeStore) QueryKeys(q Query) (*roaring64.Bitmap, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	n := s.matches
	if q.Limit > 0 {
		n = min(n, q.Limit)
	}
	result := roaring64.New()
	for i := range n {
		result.Add(uint64(i + 1))
	}
	return result, nil
}

func newTestExecutor(st Store, cutoff Cutoff) *executor {
	return &executor{store: st, cutoff: cutoff, logger: slog.New(slog.DiscardHandler)}
}

func TestExecutorPaths(t *testing.T) {
	e := expr.True{}
	tests := []struct {
		name    string
		rows    int
		matches int
		cutoff  Cutoff
		want    ExecStats
		queries []Query
	}{
		{"empty", 0, 0, FixedCutoff(10), ExecStats{Queries: 1, ShortCircuits: 1}, nil},
		{"probe_hit", 100, 3, FixedCutoff(10), ExecStats{Queries: 1, Probes: 1, ProbeHits: 1}, []Query{{Expr: e, Limit: 10}}},
		{"just_below", 100, 9, FixedCutoff(10), ExecStats{Queries: 1, Probes: 1, ProbeHits: 1}, []Query{{Expr: e, Limit: 10}}},
		{"fallback", 100, 10, FixedCutoff(10), ExecStats{Queries: 1, Probes: 1, Fallbacks: 1}, []Query{{Expr: e, Limit: 10}, {Expr: e, NoIndex: true}}},
		{"zero_cutoff_clamped", 100, 0, FixedCutoff(0), ExecStats{Queries: 1, Probes: 1, ProbeHits: 1}, []Query{{Expr: e, Limit: 1}}},
		{"negative_cutoff_clamped", 100, 5, FixedCutoff(-3), ExecStats{Queries: 1, Probes: 1, Fallbacks: 1}, []Query{{Expr: e, Limit: 1}, {Expr: e, NoIndex: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{rows: tt.rows, matches: tt.matches}
			x := newTestExecutor(st, tt.cutoff)
			keys, err := x.run(e)
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.matches), keys.GetCardinality())
			assert.Equal(t, tt.want, x.counters.snapshot())
			assert.Equal(t, tt.queries, st.queries)
		})
	}
}

func TestExecutorAll(t *testing.T) {
	st := &fakeStore{rows: 10, matches: 10}
	x := newTestExecutor(st, FixedCutoff(1))
	x.all()
	x.all()
	assert.Equal(t, ExecStats{Queries: 2, ShortCircuits: 2}, x.counters.snapshot())
	assert.Empty(t, st.queries)
}

func TestExecutorError(t *testing.T) {
	boom := errors.New("boom")
	st := &fakeStore{rows: 5, err: boom}
	x := newTestExecutor(st, FixedCutoff(2))
	_, err := x.run(expr.True{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ExecStats{Queries: 1, Probes: 1}, x.counters.snapshot())
}

func TestCutoffs(t *testing.T) {
	assert.Equal(t, 0, PowCutoff(0.6)(0))
	assert.Equal(t, 1, PowCutoff(0.6)(1))
	assert.Equal(t, 3981, PowCutoff(0.6)(1_000_000))
	assert.Equal(t, 100, PowCutoff(0.5)(10_000))

	assert.Equal(t, 0, LogCutoff(0))
	assert.Equal(t, 1, LogCutoff(1))
	assert.Equal(t, 2, LogCutoff(2))
	assert.Equal(t, 32, LogCutoff(256))
	assert.Equal(t, 50171, LogCutoff(1_000_000))

	assert.Equal(t, 7, FixedCutoff(7)(123))

	x := newTestExecutor(nil, FixedCutoff(0))
	assert.Equal(t, 1, x.limit(1000))
	x = newTestExecutor(nil, PowCutoff(0.6))
	assert.Equal(t, 1, x.limit(0))
	assert.Equal(t, 3981, x.limit(1_000_000))
}
