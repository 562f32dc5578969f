package promstats

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/objidx"
)

type point struct {
	X int64
}

func TestCollector(t *testing.T) {
	idx, err := objidx.New([]*point{{1}, {2}, {3}}, []objidx.Field{objidx.ByName("X", objidx.Int64)}, objidx.Options{
		Engine: objidx.EngineColumnar,
	})
	require.NoError(t, err)
	defer idx.Close()

	_, err = idx.FindWhere("X == 2")
	require.NoError(t, err)
	_, err = idx.Find(nil)
	require.NoError(t, err)

	c := NewCollector("points", idx)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP objidx_records Number of records registered in the index
# TYPE objidx_records gauge
objidx_records{engine="columnar",index="points"} 3
# HELP objidx_queries_total Total number of queries
# TYPE objidx_queries_total counter
objidx_queries_total{engine="columnar",index="points"} 2
# HELP objidx_probes_total Limited indexed probe queries issued
# TYPE objidx_probes_total counter
objidx_probes_total{engine="columnar",index="points"} 1
# HELP objidx_short_circuits_total Queries answered without the backing store
# TYPE objidx_short_circuits_total counter
objidx_short_circuits_total{engine="columnar",index="points"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"objidx_records", "objidx_queries_total", "objidx_probes_total", "objidx_short_circuits_total"))
	require.Equal(t, 11, testutil.CollectAndCount(c))
}
