// Package telemetry exposes a Prometheus scrape endpoint over the
// controller's vehicle state, the exporter-side counterpart to the
// external dashboards and alerting described in spec.md §6.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jihwankim/haultruck/pkg/vehicle"
)

// Exporter owns the gauge set published for one truck and the HTTP
// server that serves them.
type Exporter struct {
	registry *prometheus.Registry
	server   *http.Server

	positionX   prometheus.Gauge
	positionY   prometheus.Gauge
	theta       prometheus.Gauge
	velocity    prometheus.Gauge
	temperature prometheus.Gauge
	mode        prometheus.Gauge
	status      prometheus.Gauge
	fault       prometheus.Gauge
	logEntries  prometheus.Counter
}

// New constructs an Exporter for truckID, registering every gauge on a
// dedicated registry (not the global default, so multiple Exporters in
// one process never collide).
func New(truckID uint64) *Exporter {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"truck_id": fmt.Sprintf("%d", truckID)}

	e := &Exporter{
		registry: reg,
		positionX: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_position_x_meters", Help: "Truck X position.", ConstLabels: labels,
		}),
		positionY: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_position_y_meters", Help: "Truck Y position.", ConstLabels: labels,
		}),
		theta: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_heading_radians", Help: "Truck heading angle.", ConstLabels: labels,
		}),
		velocity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_velocity_mps", Help: "Truck linear velocity.", ConstLabels: labels,
		}),
		temperature: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_temperature_celsius", Help: "Engine temperature.", ConstLabels: labels,
		}),
		mode: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_mode", Help: "0=MANUAL_LOCAL, 1=AUTOMATIC_REMOTE.", ConstLabels: labels,
		}),
		status: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_status", Help: "0=STOPPED, 1=RUNNING, 2=FAULT, 3=EMERGENCY.", ConstLabels: labels,
		}),
		fault: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "haultruck_has_fault", Help: "1 if has_fault() is currently true.", ConstLabels: labels,
		}),
		logEntries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "haultruck_log_entries_total", Help: "Log entries appended by the data collector.", ConstLabels: labels,
		}),
	}
	return e
}

// Observe publishes one Vehicle State snapshot.
func (e *Exporter) Observe(s vehicle.State) {
	e.positionX.Set(s.X)
	e.positionY.Set(s.Y)
	e.theta.Set(s.Theta)
	e.velocity.Set(s.Velocity)
	e.temperature.Set(s.Temperature)
	e.mode.Set(float64(s.Mode))
	e.status.Set(float64(s.Status))
	if s.HasFault() {
		e.fault.Set(1)
	} else {
		e.fault.Set(0)
	}
}

// RecordLogEntry increments the published log-entry counter.
func (e *Exporter) RecordLogEntry() {
	e.logEntries.Inc()
}

// Serve starts the /metrics HTTP endpoint and blocks until ctx is
// cancelled, at which point it shuts the server down gracefully.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
