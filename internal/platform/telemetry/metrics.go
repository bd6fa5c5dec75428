// Package telemetry collects Prometheus metrics for record operations. The
// tool is a short-lived CLI, so metrics are exported to a node-exporter
// textfile rather than served over HTTP.
package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ehr/patientrecords/internal/platform/hipaa"
)

const namespace = "patient_records"

// Metrics owns a private registry and implements patient.Observer and
// hipaa.AuditRecorder.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal  *prometheus.CounterVec
	auditEventsTotal *prometheus.CounterVec
	patients         prometheus.Gauge
	occupiedRooms    prometheus.Gauge
	overbookedRooms  prometheus.Gauge
}

// New creates and registers the metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of record operations",
			},
			[]string{"operation", "outcome"},
		),
		auditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_events_total",
				Help:      "Total number of audit events",
			},
			[]string{"action", "outcome"},
		),
		patients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patients",
			Help:      "Number of stored patient records",
		}),
		occupiedRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_occupied",
			Help:      "Number of rooms with at least one active stay",
		}),
		overbookedRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_overbooked",
			Help:      "Number of rooms with more than one active stay",
		}),
	}
	m.registry.MustRegister(
		m.operationsTotal,
		m.auditEventsTotal,
		m.patients,
		m.occupiedRooms,
		m.overbookedRooms,
	)
	return m
}

// ObserveOperation counts one operation, labelled ok or error.
func (m *Metrics) ObserveOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveState records the current store and room gauges.
func (m *Metrics) ObserveState(patients, occupiedRooms, overbookedRooms int) {
	m.patients.Set(float64(patients))
	m.occupiedRooms.Set(float64(occupiedRooms))
	m.overbookedRooms.Set(float64(overbookedRooms))
}

// RecordEvent counts audit events by action and outcome code.
func (m *Metrics) RecordEvent(_ context.Context, event hipaa.AuditEvent) error {
	m.auditEventsTotal.WithLabelValues(event.Action, event.Outcome).Inc()
	return nil
}

// WriteTextfile writes the registry in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
