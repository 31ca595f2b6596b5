// Package metrics exposes analysis outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/opscart/cnc-uptime-analyzer/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements analyzer.Observer
type Recorder struct {
	analyses     prometheus.Counter
	failures     *prometheus.CounterVec
	loadLatency  prometheus.Histogram
	samples      prometheus.Counter
	quality      *prometheus.CounterVec
	uptime       prometheus.Gauge
	downtime     prometheus.Gauge
	programsSeen prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cnc_analyses_total",
			Help: "Completed uptime analyses.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cnc_analysis_failures_total",
			Help: "Failed analyses by stage.",
		}, []string{"stage"}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cnc_sample_load_seconds",
			Help:    "Time spent loading samples for one analysis.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cnc_samples_analyzed_total",
			Help: "Samples consumed by analyses.",
		}),
		quality: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cnc_sample_anomalies_total",
			Help: "Samples with data-quality issues by kind.",
		}, []string{"kind"}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cnc_last_uptime_minutes",
			Help: "Uptime of the most recent analysis.",
		}),
		downtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cnc_last_downtime_minutes",
			Help: "Downtime of the most recent analysis.",
		}),
		programsSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cnc_last_programs",
			Help: "Distinct programs in the most recent analysis.",
		}),
	}

	reg.MustRegister(r.analyses, r.failures, r.loadLatency, r.samples, r.quality,
		r.uptime, r.downtime, r.programsSeen)

	return r
}

// ObserveAnalysis records a completed analysis
func (r *Recorder) ObserveAnalysis(a *models.Analysis, loadDuration time.Duration) {
	r.analyses.Inc()
	r.loadLatency.Observe(loadDuration.Seconds())

	q := a.Quality
	r.samples.Add(float64(q.Samples))
	r.quality.WithLabelValues("unknown_program").Add(float64(q.UnknownProgramSamples))
	r.quality.WithLabelValues("dropped").Add(float64(q.DroppedSamples))
	r.quality.WithLabelValues("out_of_domain_signal").Add(float64(q.OutOfDomainSignals))
	r.quality.WithLabelValues("negative_cycle_duration").Add(float64(q.NegativeCycleDuration))
	r.quality.WithLabelValues("non_finite_cycle_duration").Add(float64(q.NonFiniteCycleDuration))
	if q.Reordered {
		r.quality.WithLabelValues("reordered").Inc()
	}

	r.uptime.Set(a.Summary.UptimeMinutes)
	r.downtime.Set(a.Summary.DowntimeMinutes)
	if a.RunCounts != nil {
		r.programsSeen.Set(float64(len(a.RunCounts.Programs())))
	}
}

// ObserveFailure records a failed analysis
func (r *Recorder) ObserveFailure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}
