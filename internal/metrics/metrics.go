// Package metrics exposes Prometheus counters fed by walker and delivery events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joe/dropsentry/internal/events"
)

// Recorder counts events. It implements events.Emitter.
type Recorder struct {
	registry *prometheus.Registry

	traversalsTotal    *prometheus.CounterVec
	truncatedTotal     prometheus.Counter
	recordsTotal       prometheus.Counter
	directoriesTotal   prometheus.Counter
	branchFailures     *prometheus.CounterVec
	reportsQueued      *prometheus.CounterVec
	reportsDelivered   *prometheus.CounterVec
	deliveryFailures   *prometheus.CounterVec
	reportsStored      *prometheus.CounterVec
	recordsStoredTotal prometheus.Counter
}

// NewRecorder registers the dropsentry metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// Traversal metrics
		traversalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_traversals_total",
				Help: "Top-level directory traversals by outcome",
			},
			[]string{"outcome"},
		),
		truncatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropsentry_traversals_truncated_total",
				Help: "Traversals stopped by a depth or record limit",
			},
		),
		recordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropsentry_records_collected_total",
				Help: "File records collected by directory traversals",
			},
		),
		directoriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropsentry_directories_drained_total",
				Help: "Directories read until an empty page",
			},
		),
		branchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_branch_failures_total",
				Help: "Failed page reads and file materializations",
			},
			[]string{"op"},
		),

		// Delivery metrics
		reportsQueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_reports_queued_total",
				Help: "Reports accepted into the outbound queue",
			},
			[]string{"kind"},
		),
		reportsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_reports_delivered_total",
				Help: "Reports handed to the collector channel",
			},
			[]string{"kind"},
		),
		deliveryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_delivery_failures_total",
				Help: "Reports the collector channel rejected or that were dropped",
			},
			[]string{"kind"},
		),

		// Collector metrics
		reportsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropsentry_reports_stored_total",
				Help: "Reports persisted by the collector",
			},
			[]string{"kind"},
		),
		recordsStoredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dropsentry_records_stored_total",
				Help: "File records persisted by the collector",
			},
		),
	}
}

// Emit updates the counters matching event.
func (r *Recorder) Emit(event events.Event) {
	switch e := event.(type) {
	case events.TraversalComplete:
		r.traversalsTotal.WithLabelValues(e.Outcome).Inc()
		r.recordsTotal.Add(float64(e.Records))

		if e.Truncated {
			r.truncatedTotal.Inc()
		}
	case events.DirectoryDrained:
		r.directoriesTotal.Inc()
	case events.BranchFailed:
		r.branchFailures.WithLabelValues(e.Op).Inc()
	case events.ReportQueued:
		r.reportsQueued.WithLabelValues(e.Kind).Inc()
	case events.ReportDelivered:
		r.reportsDelivered.WithLabelValues(e.Kind).Inc()
	case events.DeliveryFailed:
		r.deliveryFailures.WithLabelValues(e.Kind).Inc()
	case events.ReportStored:
		r.reportsStored.WithLabelValues(e.Kind).Inc()
		r.recordsStoredTotal.Add(float64(e.Records))
	}
}

// Handler returns the Prometheus metrics HTTP handler for this recorder.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
