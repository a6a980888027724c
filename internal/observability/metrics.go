package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapidryde", Name: "rides_booked_total", Help: "Rides created, by initial status"},
		[]string{"status"},
	)
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapidryde", Name: "ride_transitions_total", Help: "Ride status transitions, by target status"},
		[]string{"status"},
	)
	RejectedOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapidryde", Name: "rejected_operations_total", Help: "Store operations rejected or ignored"},
		[]string{"op", "reason"},
	)
	StaleTimersDropped = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapidryde", Name: "stale_timers_dropped_total", Help: "Automatic transitions dropped because the ride changed first"})
	RatingsSubmitted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapidryde", Name: "ratings_submitted_total", Help: "Driver ratings submitted"})
	PersistErrors      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapidryde", Name: "persist_errors_total", Help: "Failed writes to local storage"})
	ActiveRides        = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "rapidryde", Name: "active_rides", Help: "Rides not yet completed or cancelled"})
	WSSessions         = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "rapidryde", Name: "ws_sessions", Help: "Connected notification websockets"})
	EventsPublished    = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapidryde", Name: "events_published_total", Help: "Ride events handed to a sink"},
		[]string{"sink", "result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapidryde", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rapidryde",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
