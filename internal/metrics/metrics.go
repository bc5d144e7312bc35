// Package metrics exposes Prometheus counters for bot activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	violations    *prometheus.CounterVec
	actions       *prometheus.CounterVec
	levelUps      prometheus.Counter
	roleToggles   *prometheus.CounterVec
	handlerPanics *prometheus.CounterVec
	apiRequests   *prometheus.CounterVec
	modLogEntries *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "events_total",
			Help:      "Gateway events handled, by event type.",
		}, []string{"event"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "automod_violations_total",
			Help:      "Messages flagged by the content policy, by reason.",
		}, []string{"reason"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "moderation_actions_total",
			Help:      "Moderation actions attempted, by action and result.",
		}, []string{"action", "result"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "level_ups_total",
			Help:      "Level ups awarded.",
		}),
		roleToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "role_buttons_total",
			Help:      "Role button interactions, by kind and result.",
		}, []string{"kind", "result"}),
		handlerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "handler_panics_total",
			Help:      "Recovered panics in event handlers.",
		}, []string{"event"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "dashboard_requests_total",
			Help:      "Dashboard API requests, by route and status code.",
		}, []string{"route", "code"}),
		modLogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botrexy",
			Name:      "modlog_entries_total",
			Help:      "Moderation log entries written, by action.",
		}, []string{"action"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events, m.violations, m.actions, m.levelUps, m.roleToggles, m.handlerPanics, m.apiRequests, m.modLogEntries,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Event(event string) { m.events.WithLabelValues(event).Inc() }

func (m *Metrics) Violation(reason string) { m.violations.WithLabelValues(reason).Inc() }

func (m *Metrics) Action(action string, err error) {
	m.actions.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) LevelUp() { m.levelUps.Inc() }

func (m *Metrics) RoleButton(kind string, err error) {
	m.roleToggles.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) Panic(event string) { m.handlerPanics.WithLabelValues(event).Inc() }

func (m *Metrics) APIRequest(route, code string) { m.apiRequests.WithLabelValues(route, code).Inc() }

func (m *Metrics) ModLogEntry(action string) { m.modLogEntries.WithLabelValues(action).Inc() }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
