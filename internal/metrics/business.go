// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation metrics
	channelRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_channel_runs_total",
		Help: "Per-channel pipeline runs by outcome",
	}, []string{"channel", "outcome"}) // outcome=ok|fallback|fresh|failed

	programmesEmitted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "epgstitch_programmes_emitted",
		Help: "Programmes written for a channel in its last run",
	}, []string{"channel"})

	entriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_entries_dropped_total",
		Help: "Raw entries dropped before output by reason",
	}, []string{"channel", "reason"}) // reason=parse|duplicate

	gapsFilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_gaps_filled_total",
		Help: "Synthetic filler programmes inserted into uncovered intervals",
	}, []string{"channel"})

	descriptionsEnriched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_descriptions_enriched_total",
		Help: "Descriptions copied from a reference guide by title match",
	}, []string{"channel"})

	// Transport metrics
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_fetch_requests_total",
		Help: "Source fetch attempts by host and status",
	}, []string{"host", "status"}) // status=2xx|4xx|5xx|error|circuit_open

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "epgstitch_fetch_duration_seconds",
		Help:    "Duration of single source fetch attempts",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"host"})

	feedMirrorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_feed_mirror_total",
		Help: "Bulk feed mirror attempts by outcome",
	}, []string{"feed", "outcome"}) // outcome=ok|fresh|failed

	// Aggregation metrics
	aggregateDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_aggregate_documents_total",
		Help: "Per-channel documents considered for a combined guide by state",
	}, []string{"guide", "state"}) // state=merged|skipped

	aggregateProgrammes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "epgstitch_aggregate_programmes",
		Help: "Programmes in a combined guide after its last build",
	}, []string{"guide"})

	// Operational metrics
	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epgstitch_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "epgstitch_run_duration_seconds",
		Help:    "Duration of complete generate or aggregate runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	lastRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "epgstitch_last_run_timestamp_seconds",
		Help: "Unix time of the last finished run by job and result",
	}, []string{"job", "result"}) // result=success|failure
)

func RecordChannelRun(channel, outcome string) {
	channelRunsTotal.WithLabelValues(channel, outcome).Inc()
}

func SetProgrammesEmitted(channel string, n int) {
	programmesEmitted.WithLabelValues(channel).Set(float64(n))
}

// RecordDroppedEntries is a no-op for n <= 0.
func RecordDroppedEntries(channel, reason string, n int) {
	if n <= 0 {
		return
	}
	entriesDropped.WithLabelValues(channel, reason).Add(float64(n))
}

func RecordGapsFilled(channel string, n int) {
	if n <= 0 {
		return
	}
	gapsFilled.WithLabelValues(channel).Add(float64(n))
}

func RecordEnriched(channel string, n int) {
	if n <= 0 {
		return
	}
	descriptionsEnriched.WithLabelValues(channel).Add(float64(n))
}

// RecordFetch records one HTTP attempt. status is a class label, see
// StatusClass.
func RecordFetch(host, status string, d time.Duration) {
	fetchRequestsTotal.WithLabelValues(host, status).Inc()
	if d > 0 {
		fetchDuration.WithLabelValues(host).Observe(d.Seconds())
	}
}

// StatusClass maps an HTTP status to the fetch status label.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}

func RecordFeedMirror(feed, outcome string) {
	feedMirrorTotal.WithLabelValues(feed, outcome).Inc()
}

func RecordAggregate(guide string, merged, skipped, programmes int) {
	aggregateDocuments.WithLabelValues(guide, "merged").Add(float64(merged))
	aggregateDocuments.WithLabelValues(guide, "skipped").Add(float64(skipped))
	aggregateProgrammes.WithLabelValues(guide).Set(float64(programmes))
}

func IncConfigValidationError() { configValidationErrors.Inc() }

// RecordRun stamps the end of a job run.
func RecordRun(job string, d time.Duration, err error) {
	runDuration.Observe(d.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	lastRunTimestamp.WithLabelValues(job, result).SetToCurrentTime()
}
