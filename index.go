package objidx

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/andreyvit/objidx/expr"
)

// Index keeps a queryable projection of a set of live records. The records
// stay owned by the caller; the index holds references and projected field
// values. Records are identified by reference, so T must be a pointer or a
// map type.
//
// An Index is not safe for concurrent use.
type Index[T any] struct {
	scm    *Schema
	specs  []IndexSpec
	engine EngineKind
	table  string
	logger *slog.Logger
	reg    *registry[T]
	store  Store
	exec   *executor
}

// New creates an index over records. The initial records are bulk-loaded
// before the indices are built.
func New[T any](records []T, fields []Field, opt Options) (*Index[T], error) {
	opt = opt.withDefaults()
	scm, err := NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	specs, err := scm.indexSpecs(opt.Indices)
	if err != nil {
		return nil, err
	}

	cfg := StoreConfig{
		Namespace: opt.Namespaces.Next(),
		Dir:       opt.Dir,
		Logger:    opt.Logger,
	}
	st, err := openStore(opt.Engine, cfg)
	if err != nil {
		return nil, err
	}
	idx := &Index[T]{
		scm:    scm,
		specs:  specs,
		engine: opt.Engine,
		table:  cfg.TableName(),
		logger: opt.Logger.With("table", cfg.TableName()),
		reg:    newRegistry[T](),
		store:  st,
	}
	idx.exec = &executor{store: st, cutoff: opt.Cutoff, logger: idx.logger}

	err = st.CreateSchema(scm, specs)
	if err == nil {
		err = idx.AddMany(records)
	}
	if err == nil {
		err = st.BuildIndices()
	}
	if err != nil {
		st.Close()
		return nil, err
	}
	idx.logger.LogAttrs(context.Background(), slog.LevelDebug, "index created",
		slog.String("engine", string(opt.Engine)),
		slog.Any("fields", scm.Names()),
		slog.Int("indices", len(specs)),
		slog.Int("records", idx.reg.len()))
	return idx, nil
}

func (idx *Index[T]) Schema() *Schema    { return idx.scm }
func (idx *Index[T]) Engine() EngineKind { return idx.engine }

// Add indexes r. Adding a record that is already indexed does nothing.
func (idx *Index[T]) Add(r T) error {
	id, err := identityOf(r)
	if err != nil {
		return err
	}
	if _, ok := idx.reg.keyOf(id); ok {
		return nil
	}
	vals, err := idx.scm.project(r)
	if err != nil {
		return err
	}
	key, _ := idx.reg.register(r, id)
	if err := idx.store.InsertOne(Row{key, vals}); err != nil {
		ensure(idx.reg.unregister(key))
		return err
	}
	return nil
}

// AddMany indexes every record that is not indexed yet. When the batch
// repeats a record, its first occurrence wins. Nothing is written unless
// every new record projects cleanly.
func (idx *Index[T]) AddMany(records []T) error {
	type pending struct {
		record T
		id     identity
		vals   []expr.Value
	}
	batch := make([]pending, 0, len(records))
	seen := make(map[identity]struct{}, len(records))
	for i, r := range records {
		id, err := identityOf(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := idx.reg.keyOf(id); ok {
			continue
		}
		vals, err := idx.scm.project(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		batch = append(batch, pending{r, id, vals})
	}
	if len(batch) == 0 {
		return nil
	}

	rows := make([]Row, len(batch))
	for i, p := range batch {
		key, _ := idx.reg.register(p.record, p.id)
		rows[i] = Row{key, p.vals}
	}
	if err := idx.store.InsertMany(rows); err != nil {
		for _, row := range rows {
			ensure(idx.reg.unregister(row.Key))
		}
		return err
	}
	return nil
}

func (idx *Index[T]) keyOf(r T) (uint64, error) {
	id, err := identityOf(r)
	if err != nil {
		return 0, err
	}
	key, ok := idx.reg.keyOf(id)
	if !ok {
		return 0, fmt.Errorf("%w: %T %p", ErrNotFound, r, id.ptr)
	}
	return key, nil
}

// Remove drops r from the index. Fails with ErrNotFound if r is not indexed.
func (idx *Index[T]) Remove(r T) error {
	key, err := idx.keyOf(r)
	if err != nil {
		return err
	}
	if err := idx.store.DeleteOne(key); err != nil {
		return err
	}
	ensure(idx.reg.unregister(key))
	return nil
}

// Update writes updates into the record itself, then re-projects the record
// into the index. With no updates it only re-projects, picking up changes the
// caller made to the record directly. Fails with ErrNotFound if r is not
// indexed; on any failure the record is left as it was.
func (idx *Index[T]) Update(r T, updates map[string]any) error {
	key, err := idx.keyOf(r)
	if err != nil {
		return err
	}
	assignments, err := prepareOverrides(r, updates)
	if err != nil {
		return err
	}
	undo := applyOverrides(assignments)
	vals, err := idx.scm.project(r)
	if err != nil {
		undo()
		return err
	}
	changes := make(map[int]expr.Value, len(vals))
	for i, v := range vals {
		changes[i] = v
	}
	if err := idx.store.UpdateOne(key, changes); err != nil {
		undo()
		return err
	}
	return nil
}

// Find returns the records matching p, in the order they were added. A nil
// or empty predicate returns every record.
func (idx *Index[T]) Find(p Predicate) ([]T, error) {
	var e expr.Expr
	if p != nil {
		var err error
		e, err = p.lower(idx.scm)
		if err != nil {
			return nil, err
		}
	}
	if e == nil {
		idx.exec.all()
		return idx.reg.snapshot(), nil
	}

	keys, err := idx.exec.run(e)
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, keys.GetCardinality())
	it := keys.Iterator()
	for it.HasNext() {
		key := it.Next()
		r, ok := idx.reg.resolve(key)
		if !ok {
			panic(fmt.Errorf("%s: store returned key %d that is not registered", idx.table, key))
		}
		result = append(result, r)
	}
	return result, nil
}

// FindWhere is Find(Where(src)).
func (idx *Index[T]) FindWhere(src string) ([]T, error) {
	return idx.Find(Where(src))
}

func (idx *Index[T]) Contains(r T) bool {
	id, err := identityOf(r)
	if err != nil {
		return false
	}
	_, ok := idx.reg.keyOf(id)
	return ok
}

func (idx *Index[T]) Len() int {
	return idx.reg.len()
}

// All iterates over the records indexed at the time iteration starts, in the
// order they were added. The sequence can be ranged over more than once.
func (idx *Index[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, r := range idx.reg.snapshot() {
			if !yield(r) {
				return
			}
		}
	}
}

func (idx *Index[T]) Stats() Stats {
	return Stats{
		Engine:  idx.engine,
		Records: idx.reg.len(),
		Store:   idx.store.Stats(),
		Exec:    idx.exec.counters.snapshot(),
	}
}

// Close releases the backing store. The Index must not be used afterwards.
func (idx *Index[T]) Close() error {
	return idx.store.Close()
}
