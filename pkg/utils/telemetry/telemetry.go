package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

const meterName = "github.com/secmon-lab/mnemosyne"

// Setup initialises the OpenTelemetry meter provider. When endpoint is
// empty, metrics are collected against a no-export provider so
// instrumentation stays cheap and callers never branch. The returned
// shutdown function must be invoked on exit.
func Setup(ctx context.Context, endpoint, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build telemetry resource")
	}

	var provider *sdkmetric.MeterProvider

	if endpoint != "" {
		// Accept both "collector:4318" and full URLs
		insecure := true
		if strings.HasPrefix(endpoint, "http://") {
			endpoint = strings.TrimPrefix(endpoint, "http://")
		} else if strings.HasPrefix(endpoint, "https://") {
			endpoint = strings.TrimPrefix(endpoint, "https://")
			insecure = false
		}

		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OTLP metric exporter")
		}

		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
		provider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
	} else {
		provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	}

	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// StageRecorder records per-stage durations of the ingestion pipeline
type StageRecorder struct {
	duration metric.Float64Histogram
}

// NewStageRecorder creates a recorder on the global meter provider
func NewStageRecorder() (*StageRecorder, error) {
	meter := otel.Meter(meterName)
	duration, err := meter.Float64Histogram("mnemosyne.pipeline.stage.duration",
		metric.WithDescription("Duration of each ingestion pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create stage duration histogram")
	}

	return &StageRecorder{duration: duration}, nil
}

// Record reports the elapsed time of one completed stage
func (r *StageRecorder) Record(ctx context.Context, stage types.Stage, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.duration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage.String())),
	)
}
