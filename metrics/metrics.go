// Package metrics wires a Prometheus registry through an OpenTelemetry
// MeterProvider, exactly the pairing the teacher's metrics package uses
// (InitPrometheus + Init), generalized from per-entity counters to the
// core's own set of vessel/bridge-text instruments.
package metrics

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider

	vesselsTracked       metric.Int64ObservableGauge
	updatesProcessed     metric.Int64Counter
	gpsJumpsDetected     metric.Int64Counter
	etaCalculationErrors metric.Int64Counter
	bridgeTextRegens     metric.Int64Counter
	bridgeTextDebounces  metric.Int64Counter
	triggersFired        metric.Int64Counter

	trackedCount atomic.Int64
)

// InitPrometheus creates the Prometheus registry and the promhttp handler
// to serve at /metrics; it must be called once before Init.
func InitPrometheus() (http.Handler, error) {
	registry = prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// Init registers the core's instruments against the global MeterProvider.
func Init() error {
	meter := otel.Meter("brovakt/canal")

	var err error
	vesselsTracked, err = meter.Int64ObservableGauge(
		"canal_vessels_tracked",
		metric.WithDescription("number of vessels currently held in the registry"),
	)
	if err != nil {
		return err
	}
	if _, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(vesselsTracked, trackedCount.Load())
		return nil
	}, vesselsTracked); err != nil {
		return err
	}

	if updatesProcessed, err = meter.Int64Counter(
		"canal_updates_processed_total",
		metric.WithDescription("AIS position reports applied to the registry"),
	); err != nil {
		return err
	}
	if gpsJumpsDetected, err = meter.Int64Counter(
		"canal_gps_jumps_detected_total",
		metric.WithDescription("position deltas classified as a GPS jump"),
	); err != nil {
		return err
	}
	if etaCalculationErrors, err = meter.Int64Counter(
		"canal_eta_calculation_errors_total",
		metric.WithDescription("ETA calculations that returned no estimate"),
	); err != nil {
		return err
	}
	if bridgeTextRegens, err = meter.Int64Counter(
		"canal_bridge_text_regenerations_total",
		metric.WithDescription("bridge-text compositions that produced a fresh string"),
	); err != nil {
		return err
	}
	if bridgeTextDebounces, err = meter.Int64Counter(
		"canal_bridge_text_debounces_total",
		metric.WithDescription("bridge-text compositions that re-emitted the cached string"),
	); err != nil {
		return err
	}
	if triggersFired, err = meter.Int64Counter(
		"canal_boat_near_triggers_total",
		metric.WithDescription("boat_near trigger emissions"),
	); err != nil {
		return err
	}
	return nil
}

// SetVesselsTracked updates the gauge observed on the next collection.
func SetVesselsTracked(n int) { trackedCount.Store(int64(n)) }

func RecordUpdate(ctx context.Context) {
	if updatesProcessed != nil {
		updatesProcessed.Add(ctx, 1)
	}
}

func RecordGPSJump(ctx context.Context) {
	if gpsJumpsDetected != nil {
		gpsJumpsDetected.Add(ctx, 1)
	}
}

func RecordETAError(ctx context.Context) {
	if etaCalculationErrors != nil {
		etaCalculationErrors.Add(ctx, 1)
	}
}

func RecordBridgeTextRegeneration(ctx context.Context, debounced bool) {
	if debounced {
		if bridgeTextDebounces != nil {
			bridgeTextDebounces.Add(ctx, 1)
		}
		return
	}
	if bridgeTextRegens != nil {
		bridgeTextRegens.Add(ctx, 1)
	}
}

func RecordTrigger(ctx context.Context) {
	if triggersFired != nil {
		triggersFired.Add(ctx, 1)
	}
}
