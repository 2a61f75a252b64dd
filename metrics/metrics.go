// Package metrics exports mixture-fit progress as Prometheus metrics.
//
// A Collector implements cluster.Observer and registers its metrics on the
// registerer it is given, so several collectors can coexist in tests and
// nothing is registered globally.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/katalvlaran/mmgsem/cluster"
)

// Collector counts EM iterations, objective decreases, reinitializations
// and finished fits, labeled by K.
type Collector struct {
	iterations *prometheus.CounterVec
	objective  *prometheus.GaugeVec
	violations *prometheus.CounterVec
	reinits    *prometheus.CounterVec
	fits       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ cluster.Observer = (*Collector)(nil)

// New registers the collector's metrics on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)

	return &Collector{
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "em_iterations_total",
			Help:      "EM iterations run, across all starts.",
		}, []string{"k"}),
		objective: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "em_objective",
			Help:      "Objective after the latest EM iteration.",
		}, []string{"k"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "em_monotonicity_violations_total",
			Help:      "Iterations whose objective decreased.",
		}, []string{"k"}),
		reinits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "em_cluster_reinitializations_total",
			Help:      "Empty clusters refilled with a random group.",
		}, []string{"k"}),
		fits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "Finished mixture fits.",
		}, []string{"k", "converged"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Wall time of a mixture fit including all starts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"k"}),
	}
}

func label(k int) string { return strconv.Itoa(k) }

// OnIteration implements cluster.Observer.
func (c *Collector) OnIteration(k, _, _ int, objective float64) {
	c.iterations.WithLabelValues(label(k)).Inc()
	c.objective.WithLabelValues(label(k)).Set(objective)
}

// OnViolation implements cluster.Observer.
func (c *Collector) OnViolation(k int, _ float64) {
	c.violations.WithLabelValues(label(k)).Inc()
}

// OnReinitialize implements cluster.Observer.
func (c *Collector) OnReinitialize(k, _ int) {
	c.reinits.WithLabelValues(label(k)).Inc()
}

// OnFinish implements cluster.Observer.
func (c *Collector) OnFinish(k, _ int, converged bool, elapsed time.Duration) {
	c.fits.WithLabelValues(label(k), strconv.FormatBool(converged)).Inc()
	c.duration.WithLabelValues(label(k)).Observe(elapsed.Seconds())
}
