// Package metrics records client-side request metrics.
//
// Recorder has two implementations: Prometheus, registering its collectors on a
// caller-supplied registerer, and Nop, used when metrics are not configured.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tfs_client"

// Recorder receives request and result observations from the client.
type Recorder interface {
	// ObserveRequest records one HTTP round trip. code is 0 when no
	// response was received.
	ObserveRequest(method string, code int, duration time.Duration)

	// ObserveReadRetry records a repeated attempt to read a response body.
	ObserveReadRetry()

	// ObserveResult records the normalized outcome of an operation.
	ObserveResult(operation, kind string)
}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	readRetries prometheus.Counter
	results     *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg:
//   - tfs_client_requests_total (counter, method/code)
//   - tfs_client_request_duration_seconds (histogram, method)
//   - tfs_client_read_retries_total (counter)
//   - tfs_client_results_total (counter, operation/kind)
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests sent to the TFS server.",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests sent to the TFS server.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		readRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "read_retries_total",
				Help:      "Total number of repeated response body reads.",
			},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_total",
				Help:      "Total number of operation results by kind.",
			},
			[]string{"operation", "kind"},
		),
	}

	for _, c := range []prometheus.Collector{p.requests, p.duration, p.readRetries, p.results} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	return p, nil
}

// ObserveRequest implements Recorder.
func (p *Prometheus) ObserveRequest(method string, code int, duration time.Duration) {
	p.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	p.duration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveReadRetry implements Recorder.
func (p *Prometheus) ObserveReadRetry() {
	p.readRetries.Inc()
}

// ObserveResult implements Recorder.
func (p *Prometheus) ObserveResult(operation, kind string) {
	p.results.WithLabelValues(operation, kind).Inc()
}

// Nop is a Recorder that discards everything.
type Nop struct{}

// ObserveRequest implements Recorder.
func (Nop) ObserveRequest(string, int, time.Duration) {}

// ObserveReadRetry implements Recorder.
func (Nop) ObserveReadRetry() {}

// ObserveResult implements Recorder.
func (Nop) ObserveResult(string, string) {}
