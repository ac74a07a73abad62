package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricObjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_objects_counted_total",
		Help: "Counted objects by scoring category.",
	}, []string{"category"})

	metricTelemetryConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_telemetry_connected",
		Help: "1 when the telemetry client is connected to the robot broker.",
	})

	metricFieldBusActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_field_bus_active",
		Help: "1 when the field PLC polled the score register within the last second.",
	})

	metricLightingActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_lighting_active",
		Help: "1 when sACN lighting packets arrived within the last ten seconds.",
	})
)

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
