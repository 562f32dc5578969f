package objidx

import (
	"log/slog"
)

type Options struct {
	// Engine selects the backing store. Defaults to EngineBolt.
	Engine EngineKind

	// Indices lists the composite indices as field-name tuples. nil builds one
	// single-column index per field; an empty non-nil slice builds none.
	Indices [][]string

	// Cutoff computes the probe limit of the adaptive executor from the row
	// count. Defaults to DefaultCutoff.
	Cutoff Cutoff

	Logger *slog.Logger

	// Namespaces allocates the table name of the instance. Defaults to a
	// process-wide counter.
	Namespaces NamespaceSource

	// Dir is where engines that need files create them. Defaults to the
	// system temp dir.
	Dir string
}

func (opt Options) withDefaults() Options {
	if opt.Engine == "" {
		opt.Engine = DefaultEngine
	}
	if opt.Cutoff == nil {
		opt.Cutoff = DefaultCutoff
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	if opt.Namespaces == nil {
		opt.Namespaces = DefaultNamespaces()
	}
	return opt
}
