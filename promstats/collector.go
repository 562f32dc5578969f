// Package promstats exports the statistics of an objidx.Index to Prometheus.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andreyvit/objidx"
)

// StatsSource is implemented by *objidx.Index[T] for every T.
type StatsSource interface {
	Stats() objidx.Stats
}

type Collector struct {
	src StatsSource

	records    *prometheus.Desc
	rows       *prometheus.Desc
	indexRows  *prometheus.Desc
	dataBytes  *prometheus.Desc
	indexBytes *prometheus.Desc
	allocBytes *prometheus.Desc

	queries       *prometheus.Desc
	shortCircuits *prometheus.Desc
	probes        *prometheus.Desc
	probeHits     *prometheus.Desc
	fallbacks     *prometheus.Desc
}

// NewCollector describes src under the given index name, which becomes the
// "index" label of every metric.
func NewCollector(name string, src StatsSource) *Collector {
	labels := prometheus.Labels{"index": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("objidx_"+metric, help, []string{"engine"}, labels)
	}
	return &Collector{
		src: src,

		records:    desc("records", "Number of records registered in the index"),
		rows:       desc("store_rows", "Number of projected rows in the backing store"),
		indexRows:  desc("store_index_rows", "Number of secondary index entries in the backing store"),
		dataBytes:  desc("store_data_bytes", "Bytes used by projected rows"),
		indexBytes: desc("store_index_bytes", "Bytes used by secondary indices"),
		allocBytes: desc("store_alloc_bytes", "Bytes allocated by the backing store"),

		queries:       desc("queries_total", "Total number of queries"),
		shortCircuits: desc("short_circuits_total", "Queries answered without the backing store"),
		probes:        desc("probes_total", "Limited indexed probe queries issued"),
		probeHits:     desc("probe_hits_total", "Probes whose result was complete"),
		fallbacks:     desc("fallbacks_total", "Probes that reached the limit and were redone as full scans"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.records
	ch <- c.rows
	ch <- c.indexRows
	ch <- c.dataBytes
	ch <- c.indexBytes
	ch <- c.allocBytes
	ch <- c.queries
	ch <- c.shortCircuits
	ch <- c.probes
	ch <- c.probeHits
	ch <- c.fallbacks
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	engine := string(s.Engine)

	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), engine)
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), engine)
	}

	gauge(c.records, s.Records)
	gauge(c.rows, s.Store.Rows)
	gauge(c.indexRows, s.Store.IndexRows)
	gauge(c.dataBytes, s.Store.DataSize)
	gauge(c.indexBytes, s.Store.IndexSize)
	gauge(c.allocBytes, s.Store.TotalAlloc())

	counter(c.queries, s.Exec.Queries)
	counter(c.shortCircuits, s.Exec.ShortCircuits)
	counter(c.probes, s.Exec.Probes)
	counter(c.probeHits, s.Exec.ProbeHits)
	counter(c.fallbacks, s.Exec.Fallbacks)
}
