package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestor_messages_received_total",
			Help: "Total number of broker messages handed to the pipeline",
		},
	)

	ReadingsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestor_readings_persisted_total",
			Help: "Total number of readings inserted by sensor type",
		},
		[]string{"sensor_type"},
	)

	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestor_messages_dropped_total",
			Help: "Total number of dropped messages by drop reason",
		},
		[]string{"reason"},
	)

	TimestampFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestor_timestamp_fallbacks_total",
			Help: "Readings stored with the receive time because the payload timestamp was missing or malformed",
		},
	)

	MessageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestor_message_duration_seconds",
			Help:    "Duration of handling one broker message",
			Buckets: prometheus.DefBuckets,
		},
	)

	BrokerConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestor_broker_connect_attempts_total",
			Help: "Broker connection attempts by outcome",
		},
		[]string{"outcome"},
	)

	DeadLettersArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestor_dead_letters_archived_total",
			Help: "Dropped messages written to the dead-letter archive by outcome",
		},
		[]string{"outcome"},
	)
)
