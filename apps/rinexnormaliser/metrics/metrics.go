// The metrics package holds the Prometheus metrics of the normaliser.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goblimey/go-rinex/rinex/codecerror"
)

const namespace = "rinex_normaliser"

// Metrics is the set of metrics.  Each Metrics has its own registry, so
// tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	FilesNormalised prometheus.Counter
	FilesFailed     prometheus.Counter
	RecordsWritten  prometheus.Counter
	LinesSkipped    prometheus.Counter

	// Problems counts problems by kind, for example "truncated record".
	Problems *prometheus.CounterVec

	// LastRun is the time of the last scan as a Unix timestamp.
	LastRun prometheus.Gauge
}

// New creates the metrics and registers them.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesNormalised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_normalised_total",
			Help:      "Input files normalised.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Input files that could not be normalised.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Data records written to normalised files.",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Input lines skipped by lenient parsing.",
		}),
		Problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_total",
			Help:      "Problems found in input files, by kind.",
		}, []string{"kind"}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "The time of the last scan of the input directory.",
		}),
	}

	m.Registry.MustRegister(m.FilesNormalised, m.FilesFailed, m.RecordsWritten,
		m.LinesSkipped, m.Problems, m.LastRun)

	return m
}

// Normalised records a file that was normalised, with the problems that
// lenient parsing recovered from.
func (m *Metrics) Normalised(records, skipped int, problems []error) {
	m.FilesNormalised.Inc()
	m.RecordsWritten.Add(float64(records))
	m.LinesSkipped.Add(float64(skipped))
	for _, p := range problems {
		m.Problems.WithLabelValues(kindLabel(p)).Inc()
	}
}

// Failed records a file that could not be normalised.
func (m *Metrics) Failed(err error) {
	m.FilesFailed.Inc()
	m.Problems.WithLabelValues(kindLabel(err)).Inc()
}

func kindLabel(err error) string {
	kind := codecerror.KindOf(err)
	if kind == 0 {
		return "other"
	}
	return kind.String()
}

// Handler returns an HTTP handler that serves the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server that serves the metrics on /metrics at
// the given address.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
