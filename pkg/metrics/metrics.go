package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blogpipe"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "pipeline_runs_total", Help: "Pipeline runs by job and outcome status."},
		[]string{"job", "status"},
	)
	GenerationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "generation_attempts_total", Help: "Calls to the generation service by kind (text, image)."},
		[]string{"kind"},
	)
	SocialPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "social_publish_total", Help: "Social publish attempts by channel and result."},
		[]string{"channel", "result"},
	)
	NotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_failed_total", Help: "Notifications that could not be delivered."},
	)
	SitePagesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "site_pages_written_total", Help: "Post pages written by the static site builder."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PipelineRuns)
	reg.MustRegister(GenerationAttempts)
	reg.MustRegister(SocialPublishes)
	reg.MustRegister(NotificationsFailed)
	reg.MustRegister(SitePagesWritten)
}
