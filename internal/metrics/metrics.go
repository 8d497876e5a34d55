// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsTotal counts UDP payloads handed to the pipeline
	PacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_packets_total",
			Help: "Total number of UDP payloads processed",
		},
	)

	// CaptureDropsTotal counts payloads dropped at the capture queue
	CaptureDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_capture_drops_total",
			Help: "Total number of payloads dropped on capture queue overflow",
		},
	)

	// MalformedTotal counts discarded inputs by pipeline stage
	MalformedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photometer_malformed_total",
			Help: "Total number of malformed inputs discarded",
		},
		[]string{"stage"},
	)

	// UnknownCommandsTotal counts transport commands of unrecognized type
	UnknownCommandsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_unknown_commands_total",
			Help: "Total number of transport commands skipped for unknown type",
		},
	)

	// ReassemblyDropsTotal counts fragment buffers dropped by reason
	ReassemblyDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photometer_reassembly_drops_total",
			Help: "Total number of reassembly buffers dropped",
		},
		[]string{"reason"},
	)

	// ReassemblyPendingBuffers tracks incomplete fragment buffers
	ReassemblyPendingBuffers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photometer_reassembly_pending_buffers",
			Help: "Number of incomplete fragment buffers awaiting reassembly",
		},
	)

	// UnknownTagsTotal counts payload values with unrecognized type tags
	UnknownTagsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_unknown_tags_total",
			Help: "Total number of payloads with unknown type tags",
		},
	)

	// UnknownEventsTotal counts messages without a registered builder
	UnknownEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_unknown_events_total",
			Help: "Total number of messages with no registered event builder",
		},
	)

	// DeferredEvictionsTotal counts tuples evicted from full deferred queues
	DeferredEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photometer_deferred_evictions_total",
			Help: "Total number of deferred tuples evicted on queue overflow",
		},
	)

	// SessionsArchivedTotal counts sessions pushed to history
	SessionsArchivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photometer_sessions_archived_total",
			Help: "Total number of sessions archived",
		},
		[]string{"mode"},
	)
)
