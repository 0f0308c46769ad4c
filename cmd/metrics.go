package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/krisalay/salon-cache/telemetry"
)

// metricsReport holds the in-process meter provider installed for one
// command run, so the counters can be printed before exit.
type metricsReport struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// setupMetrics installs an sdk meter provider as the global one and builds
// the store metrics on top of it.
func setupMetrics() (*telemetry.Metrics, *metricsReport, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	metrics, err := telemetry.NewGlobal()
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, err
	}
	return metrics, &metricsReport{reader: reader, provider: provider}, nil
}

func (r *metricsReport) shutdown() {
	_ = r.provider.Shutdown(context.Background())
}

func (r *metricsReport) print(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	fmt.Println("\n==================== METRICS ====================")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				kind, _ := dp.Attributes.Value(attribute.Key("kind"))
				fmt.Printf("%-28s %-13s %d\n", m.Name, kind.AsString(), dp.Value)
			}
		}
	}
	return nil
}
