package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	otelexport "github.com/MrEthical07/goSession/metrics/export/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/MrEthical07/goSession"

// startOTelMetrics pushes source's metrics to w as OTel JSON every interval.
// The returned func flushes a final collection and stops the reader.
func startOTelMetrics(source otelexport.Source, interval time.Duration, w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create stdout metric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	instruments, err := otelexport.NewExporterFromSource(provider.Meter(meterName), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return func(ctx context.Context) error {
		// Shutdown collects once more, so unregister afterwards
		err := provider.Shutdown(ctx)
		return errors.Join(err, instruments.Close())
	}, nil
}
