// Package metrics registers the Prometheus collectors for the bill pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "carbon_http_requests_total",
	Help: "Total number of requests labelled by route and status",
}, []string{"route", "status"})

var pipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "carbon_pipeline_outcomes_total",
	Help: "Pipeline runs by outcome kind and the stage that decided it",
}, []string{"kind", "stage"})

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "carbon_pipeline_stage_duration_seconds",
	Help:    "Time spent in each pipeline stage.",
	Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"stage"})

var ocrPages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "carbon_ocr_pages_total",
	Help: "Images sent to the OCR engine, by engine and result",
}, []string{"engine", "result"})

var textSource = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "carbon_text_source_total",
	Help: "Documents by the provenance of their final text",
}, []string{"source"})

var narrativeDegraded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "carbon_narrative_degraded_total",
	Help: "Records persisted without a narrative because generation failed",
})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "carbon_dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureOutcome(kind, stage string) {
	pipelineOutcomes.WithLabelValues(kind, stage).Inc()
}

func CaptureStage(stage string, elapsed time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func CaptureOCRPage(engine string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ocrPages.WithLabelValues(engine, result).Inc()
}

func CaptureTextSource(source string) {
	textSource.WithLabelValues(source).Inc()
}

func IncrementNarrativeDegraded() {
	narrativeDegraded.Inc()
}

func CaptureDependency(service string, elapsed time.Duration) {
	dependencyLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}
