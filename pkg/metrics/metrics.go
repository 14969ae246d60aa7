// sodascan
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/caas-team/sodascan/internal/logger"
)

// ServiceName is the service name reported to the collector
const ServiceName = "sodascan"

var _ Provider = (*manager)(nil)

// Provider owns the prometheus registry and the optional OpenTelemetry providers
type Provider interface {
	// Initialize sets up the OTLP exporters if configured
	Initialize(ctx context.Context) error
	// Shutdown flushes and shuts down the OpenTelemetry providers
	Shutdown(ctx context.Context) error
	// GetRegistry returns the prometheus registry instance containing the registered prometheus collectors
	GetRegistry() *prometheus.Registry
	// Sink returns the sink scan metrics are reported to
	Sink() Sink
}

type manager struct {
	config   Config
	version  string
	registry *prometheus.Registry
	prom     *PrometheusSink
	sink     Sink
	mp       *sdkmetric.MeterProvider
	tp       *sdktrace.TracerProvider
}

// New creates the registry with the default collectors and the prometheus sink
func New(config Config, version string) Provider {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prom := NewPrometheusSink(registry)
	return &manager{
		config:   config,
		version:  version,
		registry: registry,
		prom:     prom,
		sink:     prom,
	}
}

// GetRegistry returns the registry to register prometheus metrics
func (m *manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Sink returns the sink scan metrics are reported to
func (m *manager) Sink() Sink {
	return m.sink
}

const (
	// defaultInterval is the push interval used if none is configured
	defaultInterval = 30 * time.Second
	// exporterTimeout bounds the creation of the exporters
	exporterTimeout = 5 * time.Second
)

// Initialize creates the OTLP metric and trace exporters if the exporter is otlp
func (m *manager) Initialize(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if !m.config.Exporter.IsExporting() {
		log.DebugContext(ctx, "Telemetry push disabled", "exporter", m.config.Exporter)
		return nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(m.version),
	)

	cctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	metricOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(m.config.Url),
		otlpmetricgrpc.WithHeaders(m.config.headers()),
	}
	traceOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(m.config.Url),
		otlptracegrpc.WithHeaders(m.config.headers()),
	}
	if m.config.Insecure {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
	}

	metricExporter, err := otlpmetricgrpc.New(cctx, metricOpts...)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create metric exporter", "error", err)
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}
	traceExporter, err := otlptracegrpc.New(cctx, traceOpts...)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create trace exporter", "error", err)
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	interval := m.config.Interval
	if interval == 0 {
		interval = defaultInterval
	}

	m.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	m.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetMeterProvider(m.mp)
	otel.SetTracerProvider(m.tp)

	m.sink = Multi(m.prom, NewOTelSink(m.mp.Meter(ServiceName)))
	log.DebugContext(ctx, "Telemetry initialized", "exporter", m.config.Exporter, "url", m.config.Url)
	return nil
}

// Shutdown flushes and closes the OpenTelemetry providers
func (m *manager) Shutdown(ctx context.Context) error {
	log := logger.FromContext(ctx)
	var errs []error
	if m.mp != nil {
		if err := m.mp.Shutdown(ctx); err != nil {
			log.ErrorContext(ctx, "Failed to shutdown meter provider", "error", err)
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if m.tp != nil {
		if err := m.tp.Shutdown(ctx); err != nil {
			log.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	log.DebugContext(ctx, "Telemetry shutdown")
	return errors.Join(errs...)
}
