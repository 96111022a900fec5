package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/alert-comb/app/ingest"
)

const namespace = "alert_comb"

// Collector records sync results as Prometheus metrics.
type Collector struct {
	syncsTotal    *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	lastSuccessTS *prometheus.GaugeVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{}

	c.syncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "syncs_total",
		Help:      "Number of sync runs by source and status",
	}, []string{"source", "status"})
	c.alertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Number of alerts processed by source and outcome",
	}, []string{"source", "outcome"})
	c.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_errors_total",
		Help:      "Number of errors reported by sync runs",
	}, []string{"source"})
	c.syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Time spent on a sync run",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"source"})
	c.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful sync",
	}, []string{"source"})

	reg.MustRegister(
		c.syncsTotal, c.alertsTotal, c.errorsTotal,
		c.syncDuration, c.lastSuccessTS,
	)

	return c
}

func (c *Collector) ObserveSync(result ingest.SyncResult) {
	source := string(result.Source)

	c.syncsTotal.WithLabelValues(source, string(result.Status)).Inc()

	c.alertsTotal.WithLabelValues(source, "fetched").Add(float64(result.AlertsFetched))
	c.alertsTotal.WithLabelValues(source, "inserted").Add(float64(result.AlertsInserted))
	c.alertsTotal.WithLabelValues(source, "updated").Add(float64(result.AlertsUpdated))
	c.alertsTotal.WithLabelValues(source, "skipped").Add(float64(result.AlertsSkipped))

	c.errorsTotal.WithLabelValues(source).Add(float64(len(result.Errors)))
	c.syncDuration.WithLabelValues(source).Observe(result.Duration().Seconds())

	if result.Success {
		c.lastSuccessTS.WithLabelValues(source).Set(float64(result.EndTime.Unix()))
	}
}
