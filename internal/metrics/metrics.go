package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var DisputeVotes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clarity_dispute_votes_total",
	Help: "poll votes by result (counted, duplicate, rejected)",
}, []string{"result"})

var Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clarity_verdicts_total",
	Help: "verdict submissions by result",
}, []string{"result"})

var ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clarity_moderation_decisions_total",
	Help: "moderation gate and queue outcomes",
}, []string{"outcome"})

var FlowRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clarity_flow_requests_total",
	Help: "generative AI flow calls by flow and result",
}, []string{"flow", "result"})

var FlowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "clarity_flow_duration_seconds",
	Help:    "generative AI flow latency",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
}, []string{"flow"})

var TrustAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clarity_trust_adjustments_total",
	Help: "trust score adjustments by result (written, unchanged, failed, skipped)",
}, []string{"result"})

var LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "clarity_live_subscribers",
	Help: "connected websocket clients",
})
