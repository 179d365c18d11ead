// Package metrics exports calculation engine activity to Prometheus.
//
// Pass an *Observer to models.WithObserver on a schema or model:
//
//	obs := metrics.New(prometheus.DefaultRegisterer)
//	schema := models.MustDefine("order", fields, models.WithObserver(obs))
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	models "github.com/goliatone/go-models"
)

const (
	namespace = "models"
	subsystem = "calculation"
)

// Observer implements models.Observer with Prometheus collectors labeled by
// schema name.
type Observer struct {
	Passes        *prometheus.CounterVec
	Cycles        *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec
	CyclePasses   *prometheus.HistogramVec
}

var _ models.Observer = (*Observer)(nil)

// New registers the collectors with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		// Passes counts calculation passes. Labels: schema
		Passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "Total calculation passes started",
		}, []string{"schema"}),
		// Cycles counts finished settle cycles. Labels: schema, status (settled, failed, non_convergent)
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Total settle cycles by outcome",
		}, []string{"schema", "status"}),
		CycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Time from scheduling a settle cycle to the model being ready",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"schema"}),
		CyclePasses: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_passes",
			Help:      "Calculation passes needed to settle",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"schema"}),
	}
}

func (o *Observer) PassStarted(schema string, _ int) {
	o.Passes.WithLabelValues(schema).Inc()
}

func (o *Observer) CycleSettled(schema string, passes int, elapsed time.Duration) {
	o.Cycles.WithLabelValues(schema, "settled").Inc()
	o.CycleDuration.WithLabelValues(schema).Observe(elapsed.Seconds())
	o.CyclePasses.WithLabelValues(schema).Observe(float64(passes))
}

func (o *Observer) CycleFailed(schema string, passes int, err error) {
	status := "failed"
	var nonConvergent *models.NonConvergenceError
	if errors.As(err, &nonConvergent) {
		status = "non_convergent"
	}
	o.Cycles.WithLabelValues(schema, status).Inc()
	o.CyclePasses.WithLabelValues(schema).Observe(float64(passes))
}
