package objidx

import "sync/atomic"

// NamespaceSource hands out the numbers that keep the tables of different
// Index instances apart. Numbers must not repeat while the instances using
// them are alive.
type NamespaceSource interface {
	Next() uint64
}

// Counter is a NamespaceSource backed by an atomic counter.
type Counter struct {
	last atomic.Uint64
}

func (c *Counter) Next() uint64 {
	return c.last.Add(1)
}

var processNamespaces Counter

// DefaultNamespaces is shared by every Index created without an explicit
// NamespaceSource.
func DefaultNamespaces() NamespaceSource {
	return &processNamespaces
}
