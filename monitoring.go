package objidx

// StoreStats describes the size of a store. Engines fill what they can
// measure; the columnar engine reports no index rows.
type StoreStats struct {
	Rows      int
	IndexRows int
	Indices   int

	DataSize   int
	DataAlloc  int
	IndexSize  int
	IndexAlloc int
}

func (ss *StoreStats) TotalSize() int {
	return ss.DataSize + ss.IndexSize
}

func (ss *StoreStats) TotalAlloc() int {
	return ss.DataAlloc + ss.IndexAlloc
}

// Stats is a snapshot of an Index: its store plus executor counters.
type Stats struct {
	Engine  EngineKind
	Records int
	Store   StoreStats
	Exec    ExecStats
}
