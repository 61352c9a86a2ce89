// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func gaugeVecValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetGauge().GetValue()
}

func TestCircuitBreakerTripsCountOnlyOpen(t *testing.T) {
	const component = "fetch:trips.example.org"
	before := counterVecValue(t, circuitBreakerTrips, component)

	SetCircuitBreakerState(component, "open")
	SetCircuitBreakerState(component, "half-open")
	SetCircuitBreakerState(component, "closed")
	SetCircuitBreakerState(component, "open")

	assert.Equal(t, before+2, counterVecValue(t, circuitBreakerTrips, component))
	assert.Equal(t, 1.0, gaugeVecValue(t, circuitBreakerState, component, "open"))
	assert.Equal(t, 0.0, gaugeVecValue(t, circuitBreakerState, component, "half-open"))
}

func TestRecordGapsFilled_IgnoresNonPositive(t *testing.T) {
	const channel = "Gaps.Only.pk"
	RecordGapsFilled(channel, 0)
	RecordGapsFilled(channel, -3)
	RecordGapsFilled(channel, 4)
	assert.Equal(t, 4.0, counterVecValue(t, gapsFilled, channel))
}

func TestSetProgrammesEmitted_Overwrites(t *testing.T) {
	const channel = "Emitted.pk"
	SetProgrammesEmitted(channel, 10)
	SetProgrammesEmitted(channel, 7)
	assert.Equal(t, 7.0, gaugeVecValue(t, programmesEmitted, channel))
}
