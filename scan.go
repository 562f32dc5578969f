package objidx

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/objidx/expr"
)

const (
	debugLogRawScans = false
)

// scanData evaluates q against every row of the data bucket.
func scanData(data *bbolt.Bucket, scm *Schema, q Query, result *roaring64.Bitmap) error {
	var n int
	c := data.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		vals, err := decodeRow(v, scm)
		if err != nil {
			return err
		}
		if expr.Eval(q.Expr, expr.Values(vals)) {
			result.Add(decodeKey(k))
			if n++; q.Limit > 0 && n >= q.Limit {
				break
			}
		}
	}
	return nil
}

// scanIndex walks the plan's range of the index bucket and rechecks the full
// predicate against each candidate row.
func scanIndex(idx, data *bbolt.Bucket, scm *Schema, plan *indexPlan, q Query, result *roaring64.Bitmap) error {
	var candidates, n int
	c := idx.Cursor()
	seek := plan.seekKey()
	for k, _ := c.Seek(seek); k != nil; k, _ = c.Next() {
		if debugLogRawScans {
			slog.LogAttrs(context.Background(), slog.LevelDebug, "index entry", hexAttr("seek", seek), hexAttr("key", k))
		}
		ok, err := plan.accepts(k)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		candidates++
		key := indexKeySurrogate(k)
		raw := data.Get(encodeKey(key))
		if raw == nil {
			return dataErrf(k, 0, ErrNotFound, "index entry without a row")
		}
		vals, err := decodeRow(raw, scm)
		if err != nil {
			return err
		}
		if expr.Eval(q.Expr, expr.Values(vals)) {
			result.Add(key)
			if n++; q.Limit > 0 && n >= q.Limit {
				break
			}
		}
	}
	if debugLogRawScans {
		slog.LogAttrs(context.Background(), slog.LevelDebug, "index scan done", slog.Int("candidates", candidates), slog.Int("matches", n))
	}
	return nil
}
