// Package telemetry exports workflow and backend metrics to Prometheus and
// builds the OpenTelemetry tracer provider used by the engine.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/llm"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
)

const namespace = "hybridqa"

// Metrics records workflow and backend events as Prometheus series. It
// satisfies both workflow.Observer and llm.BackendObserver.
type Metrics struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	degraded     *prometheus.CounterVec
	questions    *prometheus.CounterVec
	repairs      prometheus.Histogram
	confidence   prometheus.Histogram
	answerTime   prometheus.Histogram
	backendCalls *prometheus.CounterVec
	backendTime  *prometheus.HistogramVec
	fallbacks    *prometheus.CounterVec
}

var (
	_ workflow.Observer   = (*Metrics)(nil)
	_ llm.BackendObserver = (*Metrics)(nil)
)

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Workflow steps executed, by step and selected branch.",
		}, []string{"step", "branch"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of workflow steps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"step"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Collaborator failures absorbed with a fallback value.",
		}, []string{"step", "category"}),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by whether the answer was null.",
		}, []string{"outcome"}),
		repairs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repairs_per_question",
			Help:      "Repair cycles consumed per question.",
			Buckets:   []float64{0, 1, 2},
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_confidence",
			Help:      "Confidence of emitted answers.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		answerTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_duration_seconds",
			Help:      "End-to-end time to answer one question.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
		}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Model backend calls, by backend, task and result.",
		}, []string{"backend", "task", "result"}),
		backendTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Duration of model backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
		}, []string{"backend"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fallbacks_total",
			Help:      "Times the chain moved from one backend to the next.",
		}, []string{"from", "to"}),
	}
	m.registry.MustRegister(
		m.steps, m.stepDuration, m.degraded,
		m.questions, m.repairs, m.confidence, m.answerTime,
		m.backendCalls, m.backendTime, m.fallbacks,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StepCompleted implements workflow.Observer.
func (m *Metrics) StepCompleted(step core.Step, branch core.Branch, d time.Duration) {
	b := string(branch)
	if b == "" {
		b = "none"
	}
	m.steps.WithLabelValues(string(step), b).Inc()
	m.stepDuration.WithLabelValues(string(step)).Observe(d.Seconds())
}

// Degraded implements workflow.Observer.
func (m *Metrics) Degraded(step core.Step, err error) {
	m.degraded.WithLabelValues(string(step), errorCategory(err)).Inc()
}

// QuestionAnswered implements workflow.Observer.
func (m *Metrics) QuestionAnswered(r core.Result, repairs int, d time.Duration) {
	outcome := "answered"
	if r.FinalAnswer.IsNull() {
		outcome = "null"
	}
	m.questions.WithLabelValues(outcome).Inc()
	m.repairs.Observe(float64(repairs))
	m.confidence.Observe(r.Confidence)
	m.answerTime.Observe(d.Seconds())
}

// BackendCalled implements llm.BackendObserver.
func (m *Metrics) BackendCalled(backend, task string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = errorCategory(err)
	}
	m.backendCalls.WithLabelValues(backend, task, result).Inc()
	m.backendTime.WithLabelValues(backend).Observe(d.Seconds())
}

// BackendFallback implements llm.BackendObserver.
func (m *Metrics) BackendFallback(from, to string, _ error) {
	m.fallbacks.WithLabelValues(from, to).Inc()
}

func errorCategory(err error) string {
	if err == nil {
		return "none"
	}
	return string(core.GetCategory(err))
}
