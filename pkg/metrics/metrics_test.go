package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/x", "200", 0.1)
		m.IncBookingConflict()
		m.IncAppointmentCreated("pending", "direct")
		m.IncStatusTransition("pending", "confirmed", "payment")
		m.IncOccurrence("created")
		m.ObserveDBQuery("select", false, 0.01)
		m.SetDBConnections(1, 1, 0)
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer("smc-scheduling", reg)

	m.IncBookingConflict()
	m.IncBookingConflict()
	m.IncOccurrence("skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.occurrencesMaterialized.WithLabelValues("skipped")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "smc_scheduling_booking_conflicts_total")
}
