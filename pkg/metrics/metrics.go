package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OtpRequests counts OTP challenge issuance attempts by result (success|failure).
	OtpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_otp_requests_total",
			Help: "Total number of OTP challenge requests",
		},
		[]string{"result"},
	)

	// OtpVerifications counts OTP verification attempts by outcome tag
	// (success|not_found|used|expired|invalid|user_not_found|error).
	OtpVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_otp_verifications_total",
			Help: "Total number of OTP verification attempts",
		},
		[]string{"outcome"},
	)

	// InviteAcceptances counts invite redemption attempts by result (success|failure).
	InviteAcceptances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_invite_acceptances_total",
			Help: "Total number of invite acceptance attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks sessions that have not yet expired.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "academy_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "academy_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
