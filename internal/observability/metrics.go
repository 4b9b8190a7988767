package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtbooking",
		Name:      "reservations_total",
		Help:      "Reservation attempts by outcome",
	}, []string{"outcome"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtbooking",
		Name:      "webhook_events_total",
		Help:      "Payment gateway webhook events by kind and outcome",
	}, []string{"kind", "outcome"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtbooking",
		Name:      "gateway_request_duration_seconds",
		Help:      "Duration of payment gateway calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtbooking",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})
)
