package objidx

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/andreyvit/objidx/expr"
)

// EngineKind selects a Store implementation.
type EngineKind string

const (
	// EngineBolt keeps projected rows and composite B+tree indices in a
	// private bbolt file.
	EngineBolt EngineKind = "bolt"
	// EngineColumnar keeps projected rows in typed in-memory columns sorted
	// by surrogate key and answers every query with a scan.
	EngineColumnar EngineKind = "columnar"

	DefaultEngine = EngineBolt
)

// Row is a projected row: surrogate key plus one value per schema field.
type Row struct {
	Key    uint64
	Values []expr.Value
}

// Query is a bound predicate plus execution hints.
type Query struct {
	Expr expr.Expr
	// Limit stops the query after this many matches; 0 means no limit.
	Limit int
	// NoIndex forces a full scan even when an index could serve the query.
	NoIndex bool
}

// Store owns the indexed projection of the records. Stores are not safe for
// concurrent use.
//
// Inserting a key that already exists is a caller bug; stores do not check
// for it. Deleting or updating a missing key fails with ErrNotFound.
type Store interface {
	// CreateSchema allocates storage. Index structures are not built until
	// BuildIndices is called.
	CreateSchema(scm *Schema, indices []IndexSpec) error
	// BuildIndices builds the declared indices over the existing rows and
	// maintains them from then on. Calling it again is a no-op.
	BuildIndices() error
	// InsertMany inserts all rows or, if any row does not fit the schema,
	// none of them.
	InsertMany(rows []Row) error
	InsertOne(row Row) error
	DeleteOne(key uint64) error
	// UpdateOne rewrites the given columns (schema position -> value).
	UpdateOne(key uint64, values map[int]expr.Value) error
	// QueryKeys returns the keys of the rows matching q.Expr.
	QueryKeys(q Query) (*roaring64.Bitmap, error)
	Count() int
	Stats() StoreStats
	// ForEach calls f for every row in key order until f returns false.
	ForEach(f func(row Row) bool) error
	Close() error
}

// StoreConfig is passed to engine factories.
type StoreConfig struct {
	Namespace uint64
	Dir       string
	Logger    *slog.Logger
}

func (cfg StoreConfig) TableName() string {
	return fmt.Sprintf("ri_%d", cfg.Namespace)
}

type EngineFactory func(cfg StoreConfig) (Store, error)

var (
	enginesMu sync.RWMutex
	engines   = make(map[EngineKind]EngineFactory)
)

// RegisterEngine makes an engine available to New. Registering a kind twice
// replaces the earlier factory.
func RegisterEngine(kind EngineKind, factory EngineFactory) {
	if factory == nil {
		panic(fmt.Errorf("RegisterEngine(%q): nil factory", kind))
	}
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[kind] = factory
}

func Engines() []EngineKind {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	result := make([]EngineKind, 0, len(engines))
	for kind := range engines {
		result = append(result, kind)
	}
	slices.Sort(result)
	return result
}

func compareRowKeys(a, b Row) int {
	return cmp.Compare(a.Key, b.Key)
}

// checkRows verifies that every row has one value per schema field.
func checkRows(scm *Schema, rows []Row) error {
	for _, row := range rows {
		if len(row.Values) != scm.Len() {
			return fmt.Errorf("row %d has %d values, schema has %d fields", row.Key, len(row.Values), scm.Len())
		}
	}
	return nil
}

func openStore(kind EngineKind, cfg StoreConfig) (Store, error) {
	enginesMu.RLock()
	factory := engines[kind]
	enginesMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: %q is not registered (have %v)", ErrEngineUnavailable, kind, Engines())
	}
	st, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEngineUnavailable, kind, err)
	}
	return st, nil
}
