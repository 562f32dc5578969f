package objidx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/objidx/expr"
)

func init() {
	RegisterEngine(EngineBolt, openBoltStore)
}

var dataBucketName = []byte("data")

const indexBucketPrefix = "i_"

// boltStore keeps each projected row under its 8-byte big-endian key in the
// data bucket, and one bucket per index whose keys are encoded tuples
// followed by the row key. The database file is private to the store and
// removed on Close.
type boltStore struct {
	logger *slog.Logger
	path   string
	bdb    *bbolt.DB
	table  string

	scm     *Schema
	specs   []IndexSpec
	indexed bool
	count   int
}

func openBoltStore(cfg StoreConfig) (Store, error) {
	f, err := os.CreateTemp(cfg.Dir, cfg.TableName()+"-*.bolt")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	ensure(f.Close())

	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{
		NoSync:         true,
		NoGrowSync:     true,
		NoFreelistSync: true,
		FreelistType:   bbolt.FreelistMapType,
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &boltStore{
		logger: logger.With("engine", string(EngineBolt), "table", cfg.TableName()),
		path:   path,
		bdb:    bdb,
		table:  cfg.TableName(),
	}, nil
}

func (s *boltStore) err(op string, key uint64, err error) error {
	if err == nil {
		return nil
	}
	return storeErr(EngineBolt, s.table, op, key, err)
}

func (s *boltStore) CreateSchema(scm *Schema, indices []IndexSpec) error {
	s.scm = scm
	s.specs = indices
	return s.err("create", 0, s.bdb.Update(func(btx *bbolt.Tx) error {
		root, err := btx.CreateBucket(unsafeBytesFromString(s.table))
		if err != nil {
			return err
		}
		_, err = root.CreateBucket(dataBucketName)
		return err
	}))
}

func indexBucketName(spec IndexSpec) []byte {
	return []byte(indexBucketPrefix + spec.Name)
}

func (s *boltStore) buckets(btx *bbolt.Tx) (data *bbolt.Bucket, indices []*bbolt.Bucket) {
	root := nonNil(btx.Bucket(unsafeBytesFromString(s.table)))
	data = nonNil(root.Bucket(dataBucketName))
	if s.indexed {
		indices = make([]*bbolt.Bucket, len(s.specs))
		for i, spec := range s.specs {
			indices[i] = nonNil(root.Bucket(indexBucketName(spec)))
		}
	}
	return
}

func (s *boltStore) BuildIndices() error {
	if s.indexed || len(s.specs) == 0 {
		s.indexed = true
		return nil
	}
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		root := nonNil(btx.Bucket(unsafeBytesFromString(s.table)))
		indices := make([]*bbolt.Bucket, len(s.specs))
		for i, spec := range s.specs {
			b, err := root.CreateBucket(indexBucketName(spec))
			if err != nil {
				return fmt.Errorf("%v: %w", spec, err)
			}
			indices[i] = b
		}
		data := nonNil(root.Bucket(dataBucketName))
		entries := make([][][]byte, len(s.specs))
		for i := range entries {
			entries[i] = make([][]byte, 0, s.count)
		}
		c := data.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			vals, err := decodeRow(v, s.scm)
			if err != nil {
				return err
			}
			key := decodeKey(k)
			for i, spec := range s.specs {
				entries[i] = append(entries[i], appendIndexKey(nil, vals, spec.Columns, key))
			}
		}
		for i, b := range indices {
			if err := putSorted(b, entries[i]); err != nil {
				return fmt.Errorf("%v: %w", s.specs[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return s.err("build_indices", 0, err)
	}
	s.indexed = true
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "indices built", slog.Int("indices", len(s.specs)), slog.Int("rows", s.count))
	return nil
}

// putSorted writes index entries in key order. bbolt only splits nodes on
// commit, so within one transaction an out-of-order Put into a large node
// shifts every entry after it.
func putSorted(b *bbolt.Bucket, keys [][]byte) error {
	slices.SortFunc(keys, bytes.Compare)
	b.FillPercent = 0.9
	for _, k := range keys {
		if err := b.Put(k, nil); err != nil {
			return err
		}
	}
	return nil
}

// putRow writes a row and its index entries. bbolt holds on to keys and
// values until the transaction ends, so every Put gets a fresh buffer.
func (s *boltStore) putRow(data *bbolt.Bucket, indices []*bbolt.Bucket, row Row) error {
	if err := data.Put(encodeKey(row.Key), encodeRow(nil, row.Values)); err != nil {
		return err
	}
	for i, spec := range s.specs[:len(indices)] {
		if err := indices[i].Put(appendIndexKey(nil, row.Values, spec.Columns, row.Key), nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *boltStore) InsertMany(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkRows(s.scm, rows); err != nil {
		return s.err("insert", 0, err)
	}
	if !slices.IsSortedFunc(rows, compareRowKeys) {
		rows = slices.SortedFunc(slices.Values(rows), compareRowKeys)
	}
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		data.FillPercent = 0.9
		for _, row := range rows {
			if err := data.Put(encodeKey(row.Key), encodeRow(nil, row.Values)); err != nil {
				return err
			}
		}
		for i, spec := range s.specs[:len(indices)] {
			entries := make([][]byte, len(rows))
			for j, row := range rows {
				entries[j] = appendIndexKey(nil, row.Values, spec.Columns, row.Key)
			}
			if err := putSorted(indices[i], entries); err != nil {
				return fmt.Errorf("%v: %w", spec, err)
			}
		}
		return nil
	})
	if err != nil {
		return s.err("insert", 0, err)
	}
	s.count += len(rows)
	return nil
}

func (s *boltStore) InsertOne(row Row) error {
	if err := checkRows(s.scm, []Row{row}); err != nil {
		return s.err("insert", row.Key, err)
	}
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		return s.putRow(data, indices, row)
	})
	if err != nil {
		return s.err("insert", row.Key, err)
	}
	s.count++
	return nil
}

func (s *boltStore) DeleteOne(key uint64) error {
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		k := encodeKey(key)
		raw := data.Get(k)
		if raw == nil {
			return ErrNotFound
		}
		if len(indices) > 0 {
			old, err := decodeRow(raw, s.scm)
			if err != nil {
				return err
			}
			var buf []byte
			for i, spec := range s.specs {
				buf = appendIndexKey(buf[:0], old, spec.Columns, key)
				if err := indices[i].Delete(buf); err != nil {
					return err
				}
			}
		}
		return data.Delete(k)
	})
	if err != nil {
		return s.err("delete", key, err)
	}
	s.count--
	return nil
}

func (s *boltStore) UpdateOne(key uint64, values map[int]expr.Value) error {
	return s.err("update", key, s.bdb.Update(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		k := encodeKey(key)
		raw := data.Get(k)
		if raw == nil {
			return ErrNotFound
		}
		old, err := decodeRow(raw, s.scm)
		if err != nil {
			return err
		}
		vals := append([]expr.Value(nil), old...)
		for col, v := range values {
			vals[col] = v
		}
		var buf []byte
		for i, spec := range s.specs[:len(indices)] {
			if !columnsChanged(old, vals, spec.Columns) {
				continue
			}
			buf = appendIndexKey(buf[:0], old, spec.Columns, key)
			if err := indices[i].Delete(buf); err != nil {
				return err
			}
			if err := indices[i].Put(appendIndexKey(nil, vals, spec.Columns, key), nil); err != nil {
				return err
			}
		}
		return data.Put(k, encodeRow(nil, vals))
	}))
}

func columnsChanged(old, cur []expr.Value, cols []int) bool {
	for _, col := range cols {
		if old[col] != cur[col] {
			return true
		}
	}
	return false
}

func (s *boltStore) QueryKeys(q Query) (*roaring64.Bitmap, error) {
	result := roaring64.New()
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		if !q.NoIndex && len(indices) > 0 {
			if plan := chooseIndex(q.Expr, s.scm.Len(), s.specs); plan != nil {
				idx := indices[indexOfSpec(s.specs, plan.spec.Name)]
				s.logger.LogAttrs(context.Background(), slog.LevelDebug, "index scan", slog.String("plan", plan.String()), slog.Int("limit", q.Limit))
				return scanIndex(idx, data, s.scm, plan, q, result)
			}
		}
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "full scan", slog.Bool("no_index", q.NoIndex), slog.Int("limit", q.Limit))
		return scanData(data, s.scm, q, result)
	})
	if err != nil {
		return nil, s.err("query", 0, err)
	}
	return result, nil
}

func indexOfSpec(specs []IndexSpec, name string) int {
	for i, spec := range specs {
		if spec.Name == name {
			return i
		}
	}
	panic(fmt.Errorf("unknown index %q", name))
}

func (s *boltStore) Count() int {
	return s.count
}

func (s *boltStore) ForEach(f func(row Row) bool) error {
	return s.err("scan", 0, s.bdb.View(func(btx *bbolt.Tx) error {
		data, _ := s.buckets(btx)
		c := data.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			vals, err := decodeRow(v, s.scm)
			if err != nil {
				return err
			}
			if !f(Row{decodeKey(k), vals}) {
				break
			}
		}
		return nil
	}))
}

func (s *boltStore) Stats() StoreStats {
	var result StoreStats
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		data, indices := s.buckets(btx)
		bs := data.Stats()
		result.Rows = bs.KeyN
		result.DataSize = bs.LeafInuse
		result.DataAlloc = bs.BranchAlloc + bs.LeafAlloc
		result.Indices = len(indices)
		for _, b := range indices {
			bs = b.Stats()
			result.IndexRows += bs.KeyN
			result.IndexSize += bs.LeafInuse
			result.IndexAlloc += bs.BranchAlloc + bs.LeafAlloc
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("stats failed", "err", err)
	}
	return result
}

func (s *boltStore) Close() error {
	if s.bdb == nil {
		return nil
	}
	err := s.bdb.Close()
	s.bdb = nil
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return s.err("close", 0, err)
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (s *boltStore) forEachIndexEntry(spec IndexSpec, f func(vals []expr.Value, key uint64) bool) error {
	if !s.indexed {
		return nil
	}
	return s.err("scan_index", 0, s.bdb.View(func(btx *bbolt.Tx) error {
		root := nonNil(btx.Bucket(unsafeBytesFromString(s.table)))
		b := root.Bucket(indexBucketName(spec))
		if b == nil {
			return fmt.Errorf("%v: %w", spec, bbolt.ErrBucketNotFound)
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			vals, key, err := decodeIndexKey(k, len(spec.Columns))
			if err != nil {
				return err
			}
			if !f(vals, key) {
				break
			}
		}
		return nil
	}))
}
