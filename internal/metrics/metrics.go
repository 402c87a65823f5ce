// Package metrics holds the Prometheus collectors for task lifecycle,
// orchestration and notification delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multiverse"

// Metrics groups the collectors registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	TaskTransitions      *prometheus.CounterVec
	TaskConflicts        prometheus.Counter
	OrchestratedTasks    *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	LiveDeliveries       *prometheus.CounterVec
	ScheduleSlots        prometheus.Histogram
	ReminderRuns         *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TaskTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task lifecycle transitions by kind.",
		}, []string{"transition"}),
		TaskConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_version_conflicts_total",
			Help:      "Task writes rejected because another writer won the race.",
		}),
		OrchestratedTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrated_tasks_total",
			Help:      "Tasks handled by the orchestrator by source and outcome.",
		}, []string{"source", "outcome"}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Persisted notifications by type.",
		}, []string{"type"}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be persisted.",
		}),
		LiveDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_deliveries_total",
			Help:      "Live notification deliveries by outcome.",
		}, []string{"outcome"}),
		ScheduleSlots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_slots",
			Help:      "Number of slots per built schedule.",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
		ReminderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_runs_total",
			Help:      "Reminder sweeps by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.TaskTransitions,
		m.TaskConflicts,
		m.OrchestratedTasks,
		m.NotificationsCreated,
		m.NotificationFailures,
		m.LiveDeliveries,
		m.ScheduleSlots,
		m.ReminderRuns,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
