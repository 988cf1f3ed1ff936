// Package metrics holds the prometheus collectors for queue processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "simscan"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry     *prometheus.Registry
	items        *prometheus.CounterVec
	searches     *prometheus.CounterVec
	batches      *prometheus.CounterVec
	reclaimed    *prometheus.CounterVec
	queueDepth   prometheus.Gauge
	itemDuration prometheus.Histogram
	overallScore prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_items_total",
			Help: "Queue items handled, by outcome.",
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "corpus_searches_total",
			Help: "Corpus search calls, by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_batches_total",
			Help: "Batch invocations, by outcome.",
		}, []string{"outcome"}),
		reclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_reclaimed_total",
			Help: "Stale processing items taken back by the reaper.",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_waiting",
			Help: "Items waiting after the last batch.",
		}),
		itemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "queue_item_duration_seconds",
			Help:    "Time spent analysing one queue item.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		overallScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "report_overall_score",
			Help:    "Overall similarity score of completed reports.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.items, m.searches, m.batches, m.reclaimed, m.queueDepth, m.itemDuration, m.overallScore)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveItem(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
	m.itemDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.overallScore.Observe(float64(score))
}

func (m *Metrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReclaimed(outcome string) {
	if m == nil {
		return
	}
	m.reclaimed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
