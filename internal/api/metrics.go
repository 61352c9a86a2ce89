// SPDX-License-Identifier: MIT

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileRequestsDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_file_requests_denied_total",
		Help: "Guide file requests refused, by reason",
	}, []string{"reason"})

	fileRequestsServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epgstitch_file_requests_served_total",
		Help: "Guide file requests served, by encoding",
	}, []string{"encoding"})

	fileCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epgstitch_file_cache_hits_total",
		Help: "Guide file requests answered with 304 Not Modified",
	})
)

func recordFileRequestDenied(reason string) {
	fileRequestsDeniedTotal.WithLabelValues(reason).Inc()
}

func recordFileServed(encoding string) {
	fileRequestsServedTotal.WithLabelValues(encoding).Inc()
}

func recordFileCacheHit() {
	fileCacheHitsTotal.Inc()
}
