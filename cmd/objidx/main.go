// Command objidx loads records from a YAML or JSON file into an index and
// runs filter queries against it.
//
// Queries come from the config file and from the command line arguments,
// each argument being a raw filter expression:
//
//	objidx -config index.yaml -records people.yaml 'age >= 18 and city = "Oslo"'
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"

	"github.com/andreyvit/objidx"
	"github.com/andreyvit/objidx/promstats"
)

func main() {
	if err := mainImpl(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "objidx: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("objidx", flag.ContinueOnError)
	configPath := fs.String("config", "objidx.yaml", "Index config (YAML)")
	recordsPath := fs.String("records", "", "Records file, a YAML or JSON list of mappings")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	countOnly := fs.Bool("count", false, "Print match counts instead of records")
	dump := fs.Bool("dump", false, "Dump projected rows and indices after loading")
	metrics := fs.Bool("metrics", false, "Print index metrics in Prometheus text format at the end")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recordsPath == "" {
		return errors.New("-records is required")
	}

	ll := &slog.LevelVar{}
	if err := ll.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level: %w", err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	records, err := LoadRecords(*recordsPath)
	if err != nil {
		return err
	}

	opt := cfg.Options()
	opt.Logger = logger
	start := time.Now()
	idx, err := objidx.New(records, cfg.IndexFields(), opt)
	if err != nil {
		return err
	}
	defer idx.Close()
	logger.Info("loaded", "records", idx.Len(), "engine", idx.Engine(), "elapsed", time.Since(start))

	if *dump {
		fmt.Fprint(stdout, idx.Dump(objidx.DumpAll))
	}

	queries := append([]QueryConfig(nil), cfg.Queries...)
	for _, arg := range fs.Args() {
		queries = append(queries, QueryConfig{Where: arg})
	}
	for _, q := range queries {
		start := time.Now()
		found, err := idx.Find(q.Predicate())
		if err != nil {
			return fmt.Errorf("%s: %w", q, err)
		}
		logger.Debug("query", "q", q.String(), "matches", len(found), "elapsed", time.Since(start))
		if err := printResult(stdout, q, found, *countOnly); err != nil {
			return err
		}
	}

	if *metrics {
		return writeMetrics(stdout, promstats.NewCollector("cli", idx))
	}
	return nil
}

func printResult(w io.Writer, q QueryConfig, found []map[string]any, countOnly bool) error {
	if countOnly {
		_, err := fmt.Fprintf(w, "%s: %d\n", q, len(found))
		return err
	}
	fmt.Fprintf(w, "# %s (%d)\n", q, len(found))
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if len(found) > 0 {
		if err := enc.Encode(found); err != nil {
			return err
		}
	}
	return enc.Close()
}

func writeMetrics(w io.Writer, c prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	var buf strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, buf.String())
	return err
}
