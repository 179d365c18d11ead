package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/goliatone/go-models"
	"github.com/goliatone/go-models/pkg/metrics"
	"github.com/goliatone/go-models/pkg/task"
)

func TestObserverCountsSettledCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := metrics.New(reg)
	loop := task.NewLoop()

	schema := models.MustDefine("invoice", []models.Field{
		{Name: "net", Type: models.Number},
		{Name: "gross", Type: models.Derived(models.Number, func(m *models.Model) (any, error) {
			net, _ := m.Value("net").(float64)
			return net * 1.2, nil
		})},
	}, models.WithObserver(obs), models.WithLoop(loop))

	m := schema.MustNew(map[string]any{"net": 10})
	loop.Drain()
	require.True(t, m.IsReady())

	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Cycles.WithLabelValues("invoice", "settled")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.Passes.WithLabelValues("invoice")))
}

func TestObserverClassifiesFailures(t *testing.T) {
	obs := metrics.New(nil)

	obs.CycleFailed("loop", 11, &models.NonConvergenceError{Schema: "loop", Max: 10})
	obs.CycleFailed("loop", 1, assert.AnError)
	obs.CycleSettled("loop", 1, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Cycles.WithLabelValues("loop", "non_convergent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Cycles.WithLabelValues("loop", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Cycles.WithLabelValues("loop", "settled")))
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := metrics.New(reg)
	obs.PassStarted("a", 1)

	count, err := testutil.GatherAndCount(reg, "models_calculation_passes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
