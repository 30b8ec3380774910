package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tex2pdf"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration        *prom.HistogramVec
	passResults         *prom.CounterVec
	compilationDuration *prom.HistogramVec
	compilations        *prom.CounterVec
	inFlight            prom.Gauge
}

// Compile-time interface check.
var _ Recorder = (*PrometheusRecorder)(nil)

// compileBuckets cover quick single-page runs up to long multi-pass books.
var compileBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of individual compiler invocations",
			Buckets:   compileBuckets,
		}, []string{"cmd"}),
		passResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pass_exit_codes_total",
			Help:      "Compiler invocations by exit code",
		}, []string{"cmd", "exit_code"}),
		compilationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compilation_duration_seconds",
			Help:      "Duration of whole compilations, all passes included",
			Buckets:   compileBuckets,
		}, []string{"cmd", "outcome"}),
		compilations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compilations_total",
			Help:      "Compilations by outcome",
		}, []string{"cmd", "outcome"}),
		inFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "compilations_in_flight",
			Help:      "Compilations currently running",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.passResults, pr.compilationDuration, pr.compilations, pr.inFlight)
	return pr
}

func (p *PrometheusRecorder) ObservePass(cmd string, d time.Duration, exitCode int) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(cmd).Observe(d.Seconds())
	p.passResults.WithLabelValues(cmd, strconv.Itoa(exitCode)).Inc()
}

func (p *PrometheusRecorder) ObserveCompilation(cmd string, d time.Duration, outcome Outcome) {
	if p == nil {
		return
	}
	p.compilationDuration.WithLabelValues(cmd, string(outcome)).Observe(d.Seconds())
	p.compilations.WithLabelValues(cmd, string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddInFlight(delta int) {
	if p == nil {
		return
	}
	p.inFlight.Add(float64(delta))
}

// HTTPHandler returns an http.Handler that serves the metrics in g.
func HTTPHandler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
