package objidx

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/andreyvit/objidx/expr"
)

// Cutoff returns the probe limit for a store of n rows. When an indexed
// query finds at least that many matches, the executor switches to a full
// scan.
type Cutoff func(n int) int

// PowCutoff returns n^exp. Exponents between 0.6 and 0.65 work well for the
// bolt engine.
func PowCutoff(exp float64) Cutoff {
	return func(n int) int {
		return int(math.Pow(float64(n), exp))
	}
}

// LogCutoff returns n / log2(n).
func LogCutoff(n int) int {
	if n < 2 {
		return n
	}
	return int(float64(n) / math.Log2(float64(n)))
}

// FixedCutoff always returns limit. Useful to force one execution path.
func FixedCutoff(limit int) Cutoff {
	return func(int) int { return limit }
}

var DefaultCutoff = PowCutoff(0.6)

// ExecStats counts executor decisions.
type ExecStats struct {
	Queries       uint64
	ShortCircuits uint64 // empty store or no filter
	Probes        uint64
	ProbeHits     uint64 // probe result accepted as complete
	Fallbacks     uint64 // probe hit the limit, full scan followed
}

type execCounters struct {
	queries, shortCircuits, probes, probeHits, fallbacks atomic.Uint64
}

func (c *execCounters) snapshot() ExecStats {
	return ExecStats{
		Queries:       c.queries.Load(),
		ShortCircuits: c.shortCircuits.Load(),
		Probes:        c.probes.Load(),
		ProbeHits:     c.probeHits.Load(),
		Fallbacks:     c.fallbacks.Load(),
	}
}

// executor runs bound predicates against a Store using probe-then-commit:
// first an indexed query limited to cutoff(n) results, and if that limit is
// reached, an unindexed query without a limit.
type executor struct {
	store    Store
	cutoff   Cutoff
	logger   *slog.Logger
	counters execCounters
}

func (x *executor) limit(n int) int {
	return max(1, x.cutoff(n))
}

// all records a query without a filter, which the caller answers from the
// registry without touching the store.
func (x *executor) all() {
	x.counters.queries.Add(1)
	x.counters.shortCircuits.Add(1)
}

// run returns the keys of the rows matching e. An empty store is not queried.
func (x *executor) run(e expr.Expr) (*roaring64.Bitmap, error) {
	x.counters.queries.Add(1)
	n := x.store.Count()
	if n == 0 {
		x.counters.shortCircuits.Add(1)
		return roaring64.New(), nil
	}
	limit := x.limit(n)

	x.counters.probes.Add(1)
	keys, err := x.store.QueryKeys(Query{Expr: e, Limit: limit})
	if err != nil {
		return nil, err
	}
	if found := keys.GetCardinality(); found < uint64(limit) {
		x.counters.probeHits.Add(1)
		return keys, nil
	}

	x.counters.fallbacks.Add(1)
	x.logger.LogAttrs(context.Background(), slog.LevelDebug, "probe limit reached, scanning",
		slog.String("expr", e.String()),
		slog.Int("rows", n),
		slog.Int("limit", limit))
	return x.store.QueryKeys(Query{Expr: e, NoIndex: true})
}
