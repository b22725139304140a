// Package metrics регистрирует метрики Prometheus для контроля доступа.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики решений шлюза доступа и обращений к кешу.
type Metrics struct {
	decisions     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// New создает счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pro_access",
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pro_access",
			Name:      "cache_lookups_total",
			Help:      "Role and decision cache lookups by result.",
		}, []string{"kind", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pro_access",
			Name:      "cache_invalidated_keys_total",
			Help:      "Cache keys removed by explicit invalidation, by scope.",
		}, []string{"scope"}),
	}
	reg.MustRegister(m.decisions, m.cacheLookups, m.invalidations)
	return m
}

// ObserveDecision учитывает решение шлюза.
func (m *Metrics) ObserveDecision(outcome, reason string) {
	m.decisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveCache учитывает попадание или промах кеша вида kind ("role", "decision").
func (m *Metrics) ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveInvalidation учитывает количество удалённых ключей.
func (m *Metrics) ObserveInvalidation(scope string, keys int) {
	m.invalidations.WithLabelValues(scope).Add(float64(keys))
}
