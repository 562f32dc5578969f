package objidx

import (
	"fmt"
	"strings"

	"github.com/andreyvit/objidx/expr"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpIndices
	DumpIndexRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// indexWalker is implemented by stores that materialize their indices.
type indexWalker interface {
	forEachIndexEntry(spec IndexSpec, f func(vals []expr.Value, key uint64) bool) error
}

// Dump renders the projected rows and indices for debugging.
func (idx *Index[T]) Dump(f DumpFlags) string {
	var w strings.Builder
	prefix := idx.table
	s := idx.Stats()

	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(&w, dumpSep1)
		fmt.Fprintf(&w, "%s (%s, %d rows)\n", prefix, idx.engine, s.Store.Rows)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&w, "%s.stats: records = %d, index_rows = %d, data_size = %d, data_alloc = %d, index_size = %d, index_alloc = %d, total_size = %d, total_alloc = %d\n", prefix, s.Records, s.Store.IndexRows, s.Store.DataSize, s.Store.DataAlloc, s.Store.IndexSize, s.Store.IndexAlloc, s.Store.TotalSize(), s.Store.TotalAlloc())
		fmt.Fprintf(&w, "%s.exec: queries = %d, short_circuits = %d, probes = %d, probe_hits = %d, fallbacks = %d\n", prefix, s.Exec.Queries, s.Exec.ShortCircuits, s.Exec.Probes, s.Exec.ProbeHits, s.Exec.Fallbacks)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(&w, dumpSep2)
		}
		names := idx.scm.Names()
		err := idx.store.ForEach(func(row Row) bool {
			fmt.Fprintf(&w, "%s/%d:", prefix, row.Key)
			for i, v := range row.Values {
				fmt.Fprintf(&w, " %s=%v", names[i], v)
			}
			fmt.Fprintln(&w)
			return true
		})
		if err != nil {
			fmt.Fprintf(&w, "%s: ** %v\n", prefix, err)
		}
	}
	if f.Contains(DumpIndices) {
		for _, spec := range idx.specs {
			idx.dumpIndex(&w, prefix, f, spec)
		}
	}
	return w.String()
}

func (idx *Index[T]) dumpIndex(w *strings.Builder, prefix string, f DumpFlags, spec IndexSpec) {
	fmt.Fprintln(w, dumpSep2)
	prefix = prefix + ".i." + spec.Name
	cols := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		cols[i] = idx.scm.Field(col).Name
	}
	fmt.Fprintf(w, "%s (%s)\n", prefix, strings.Join(cols, ", "))

	walker, ok := idx.store.(indexWalker)
	if !f.Contains(DumpIndexRows) || !ok {
		return
	}
	err := walker.forEachIndexEntry(spec, func(vals []expr.Value, key uint64) bool {
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = v.String()
		}
		fmt.Fprintf(w, "%s: (%s) => %d\n", prefix, strings.Join(strs, ", "), key)
		return true
	})
	if err != nil {
		fmt.Fprintf(w, "%s: ** %v\n", prefix, err)
	}
}
