package metrics

import (
	"bytes"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

var (
	// BackupsTotal counts every completed backup attempt by service kind
	// and outcome (success, failed).
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_backups_total",
			Help: "Total number of backup attempts by service kind and status",
		},
		[]string{"kind", "status"},
	)

	BackupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_backup_duration_seconds",
			Help:    "Backup duration in seconds by service kind",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind"},
	)

	BackupSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_backup_size_bytes",
			Help:    "Backup artifact size in bytes by service kind",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1MiB .. 2GiB
		},
		[]string{"kind"},
	)

	RetentionDeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_retention_deletions_total",
			Help: "Total number of expired backup files removed by retention sweeps",
		},
		[]string{"service"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_notifications_total",
			Help: "Total number of notifications sent by notifier kind and outcome",
		},
		[]string{"notifier", "status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autopilot_run_duration_seconds",
			Help:    "Wall-clock duration of one backup_all_services run",
			Buckets: []float64{5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	RunServicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autopilot_run_services_total",
			Help: "Number of services processed in the most recent run, by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(BackupDuration)
	prometheus.MustRegister(BackupSizeBytes)
	prometheus.MustRegister(RetentionDeletionsTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(RunServicesTotal)
}

// Handler returns the Prometheus HTTP handler. autopilotd does not serve
// it; the CLI writes a GatherText snapshot to --metrics-file instead.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GatherText renders every registered metric in Prometheus text exposition
// format. autopilotd uses this for --metrics-file, since a one-shot CLI
// has no long-lived process for a scrape target to poll.
func GatherText() ([]byte, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
