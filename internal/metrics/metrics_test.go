package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDecision("deny", "pro_required")
	m.ObserveDecision("deny", "pro_required")
	m.ObserveDecision("allow", "")
	m.ObserveCache("role", true)
	m.ObserveCache("role", false)
	m.ObserveCache("role", false)
	m.ObserveInvalidation("user", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("deny", "pro_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("allow", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("role", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("role", "miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.invalidations.WithLabelValues("user")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
