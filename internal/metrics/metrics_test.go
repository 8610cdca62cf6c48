package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := New("flightdesk", reg)
	require.NoError(t, err)
	m2, err := New("flightdesk", reg)
	require.NoError(t, err)

	m1.Dispatches.WithLabelValues("success").Inc()
	m2.Dispatches.WithLabelValues("success").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(m1.Dispatches.WithLabelValues("success")))
}

func TestNoopIsUsable(t *testing.T) {
	m := Noop()
	require.NotNil(t, m)
	m.AutofillAssigned.Add(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.AutofillAssigned))
}
