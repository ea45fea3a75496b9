package convert

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Tables.WithLabelValues(StatusConverted.String()).Inc()
	m.Tables.WithLabelValues(StatusFailed.String()).Add(2)
	m.Rows.Add(10)
	m.DroppedBytes.Add(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Tables.WithLabelValues("converted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Tables.WithLabelValues("failed")))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.Rows))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DroppedBytes))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Tables))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "superbase_rows_total")
	assert.Contains(t, names, "superbase_dropped_bytes_total")
}

func TestMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
