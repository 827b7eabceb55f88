// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

var _ driven.PipelineRecorder = (*Recorder)(nil)

// Recorder owns a private registry so tests and multiple instances do not
// collide on the global default registerer.
type Recorder struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
	provisioning  *prometheus.CounterVec
}

// NewRecorder registers the pipeline counters plus Go runtime and process
// collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secretpipe",
			Name:      "verifications_total",
			Help:      "Credential verifications by provider and outcome.",
		}, []string{"provider", "outcome"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secretpipe",
			Name:      "provisioning_total",
			Help:      "Provisioning runs by terminal state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		r.verifications,
		r.provisioning,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveVerification counts one verification.
func (r *Recorder) ObserveVerification(provider model.Provider, outcome model.VerificationOutcome) {
	r.verifications.WithLabelValues(string(provider), string(outcome)).Inc()
}

// ObserveProvisioning counts one provisioning run reaching state.
func (r *Recorder) ObserveProvisioning(state model.PipelineState) {
	r.provisioning.WithLabelValues(string(state)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
