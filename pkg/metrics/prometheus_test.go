package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordStage("fetch_data", "ok", 0.2)
	r.RecordStage("fetch_data", "ok", 0.3)
	r.RecordStage("fetch_data", "error", 0.1)
	r.RecordRun("success")
	r.RecordError("publish")
	r.RecordLatency("run", 1.5)

	assert.Equal(t, 2.0, counterValue(t, reg, "finfolio_stage_executions_total", map[string]string{"stage": "fetch_data", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "finfolio_stage_executions_total", map[string]string{"stage": "fetch_data", "outcome": "error"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "finfolio_runs_total", map[string]string{"status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "finfolio_errors_total", map[string]string{"type": "publish"}))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
