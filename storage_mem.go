package objidx

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/andreyvit/objidx/expr"
)

func init() {
	RegisterEngine(EngineColumnar, openColumnarStore)
}

// column holds one field for every row, in key order. Only the slice that
// matches the field type is used.
type column struct {
	typ   Type
	nulls []bool
	ints  []int64
	flts  []float64
	bools []bool
	strs  []string
}

func (c *column) value(i int) expr.Value {
	if c.nulls[i] {
		return expr.Null
	}
	switch c.typ {
	case Int64:
		return expr.Int(c.ints[i])
	case Float64:
		return expr.Float(c.flts[i])
	case Bool:
		return expr.Bool(c.bools[i])
	default:
		return expr.String(c.strs[i])
	}
}

func (c *column) append(v expr.Value) {
	c.nulls = append(c.nulls, v.IsNull())
	switch c.typ {
	case Int64:
		c.ints = append(c.ints, v.I64)
	case Float64:
		c.flts = append(c.flts, v.F64)
	case Bool:
		c.bools = append(c.bools, v.B)
	default:
		c.strs = append(c.strs, v.S)
	}
}

func (c *column) set(i int, v expr.Value) {
	c.nulls[i] = v.IsNull()
	switch c.typ {
	case Int64:
		c.ints[i] = v.I64
	case Float64:
		c.flts[i] = v.F64
	case Bool:
		c.bools[i] = v.B
	default:
		c.strs[i] = v.S
	}
}

func (c *column) delete(i int) {
	c.nulls = slices.Delete(c.nulls, i, i+1)
	switch c.typ {
	case Int64:
		c.ints = slices.Delete(c.ints, i, i+1)
	case Float64:
		c.flts = slices.Delete(c.flts, i, i+1)
	case Bool:
		c.bools = slices.Delete(c.bools, i, i+1)
	default:
		c.strs = slices.Delete(c.strs, i, i+1)
	}
}

func (c *column) grow(n int) {
	c.nulls = slices.Grow(c.nulls, n)
	switch c.typ {
	case Int64:
		c.ints = slices.Grow(c.ints, n)
	case Float64:
		c.flts = slices.Grow(c.flts, n)
	case Bool:
		c.bools = slices.Grow(c.bools, n)
	default:
		c.strs = slices.Grow(c.strs, n)
	}
}

// columnarStore keeps typed columns sorted by surrogate key. Every query is
// a scan; declared indices are remembered for Stats but not materialized.
type columnarStore struct {
	logger *slog.Logger
	table  string
	scm    *Schema
	specs  []IndexSpec
	keys   []uint64
	cols   []column
}

func openColumnarStore(cfg StoreConfig) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &columnarStore{
		logger: logger.With("engine", string(EngineColumnar), "table", cfg.TableName()),
		table:  cfg.TableName(),
	}, nil
}

// columnarRow adapts a row position to expr.Row.
type columnarRow struct {
	s *columnarStore
	i int
}

func (r columnarRow) Column(col int) expr.Value {
	return r.s.cols[col].value(r.i)
}

func (s *columnarStore) CreateSchema(scm *Schema, indices []IndexSpec) error {
	if s.scm != nil {
		return storeErr(EngineColumnar, s.table, "create", 0, fmt.Errorf("schema already created"))
	}
	s.scm = scm
	s.specs = indices
	s.cols = make([]column, scm.Len())
	for i, f := range scm.fields {
		s.cols[i].typ = f.Type
	}
	return nil
}

func (s *columnarStore) BuildIndices() error {
	return nil
}

func (s *columnarStore) find(key uint64) (int, bool) {
	i := sort.Search(len(s.keys), func(i int) bool {
		return s.keys[i] >= key
	})
	return i, i < len(s.keys) && s.keys[i] == key
}

// InsertMany checks every row before inserting any, so a failed batch
// leaves the store unchanged.
func (s *columnarStore) InsertMany(rows []Row) error {
	if err := checkRows(s.scm, rows); err != nil {
		return storeErr(EngineColumnar, s.table, "insert", 0, err)
	}
	for i := range s.cols {
		s.cols[i].grow(len(rows))
	}
	s.keys = slices.Grow(s.keys, len(rows))
	for _, row := range rows {
		if err := s.InsertOne(row); err != nil {
			return err
		}
	}
	return nil
}

// InsertOne appends in the common case of an increasing key, and falls back
// to inserting in the middle otherwise.
func (s *columnarStore) InsertOne(row Row) error {
	if err := checkRows(s.scm, []Row{row}); err != nil {
		return storeErr(EngineColumnar, s.table, "insert", row.Key, err)
	}
	n := len(s.keys)
	if n == 0 || s.keys[n-1] < row.Key {
		s.keys = append(s.keys, row.Key)
		for col, v := range row.Values {
			s.cols[col].append(v)
		}
		return nil
	}
	i, _ := s.find(row.Key)
	s.keys = slices.Insert(s.keys, i, row.Key)
	for col, v := range row.Values {
		c := &s.cols[col]
		c.append(v)
		c.move(n, i)
	}
	return nil
}

// move relocates the element at from to position to, shifting the ones in
// between up by one. Requires to <= from.
func (c *column) move(from, to int) {
	v := c.value(from)
	c.delete(from)
	c.insertAt(to, v)
}

func (c *column) insertAt(i int, v expr.Value) {
	c.nulls = slices.Insert(c.nulls, i, v.IsNull())
	switch c.typ {
	case Int64:
		c.ints = slices.Insert(c.ints, i, v.I64)
	case Float64:
		c.flts = slices.Insert(c.flts, i, v.F64)
	case Bool:
		c.bools = slices.Insert(c.bools, i, v.B)
	default:
		c.strs = slices.Insert(c.strs, i, v.S)
	}
}

func (s *columnarStore) DeleteOne(key uint64) error {
	i, ok := s.find(key)
	if !ok {
		return storeErr(EngineColumnar, s.table, "delete", key, ErrNotFound)
	}
	s.keys = slices.Delete(s.keys, i, i+1)
	for col := range s.cols {
		s.cols[col].delete(i)
	}
	return nil
}

func (s *columnarStore) UpdateOne(key uint64, values map[int]expr.Value) error {
	i, ok := s.find(key)
	if !ok {
		return storeErr(EngineColumnar, s.table, "update", key, ErrNotFound)
	}
	for col, v := range values {
		s.cols[col].set(i, v)
	}
	return nil
}

func (s *columnarStore) QueryKeys(q Query) (*roaring64.Bitmap, error) {
	result := roaring64.New()
	var n int
	for i, key := range s.keys {
		if expr.Eval(q.Expr, columnarRow{s, i}) {
			result.Add(key)
			if n++; q.Limit > 0 && n >= q.Limit {
				break
			}
		}
	}
	return result, nil
}

func (s *columnarStore) Count() int {
	return len(s.keys)
}

func (s *columnarStore) ForEach(f func(row Row) bool) error {
	for i, key := range s.keys {
		vals := make([]expr.Value, len(s.cols))
		for col := range s.cols {
			vals[col] = s.cols[col].value(i)
		}
		if !f(Row{key, vals}) {
			break
		}
	}
	return nil
}

func (s *columnarStore) Stats() StoreStats {
	var size int
	for _, c := range s.cols {
		size += len(c.nulls) + 8*len(c.ints) + 8*len(c.flts) + len(c.bools)
		for _, str := range c.strs {
			size += 16 + len(str)
		}
	}
	return StoreStats{
		Rows:     len(s.keys),
		Indices:  len(s.specs),
		DataSize: size + 8*len(s.keys),
	}
}

func (s *columnarStore) Close() error {
	s.keys, s.cols = nil, nil
	return nil
}
