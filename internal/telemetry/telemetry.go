// Package telemetry wires the OpenTelemetry metrics pipeline.
//
// Instruments throughout the tree record against the global MeterProvider.
// Without an SDK provider installed those records go nowhere, so SetupMetrics
// must run before any component creates its instruments.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// SetupMetrics installs a Prometheus-backed meter provider as the global
// OTel meter provider, so every instrument in the process is collected by
// the given registerer and shows up on the /metrics scrape endpoint.
// Callers own the returned provider and must Shutdown it on teardown.
func SetupMetrics(registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider, nil
}
