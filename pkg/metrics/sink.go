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
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/caas-team/sodascan/internal/logger"
)

// TypeLabel is the label carrying the metric name of a scan metric
const TypeLabel = "type"

// Counter is a single counter-style measurement
type Counter struct {
	// Name is the series key
	Name string `json:"name" yaml:"name"`
	// Value is the measured value
	Value float64 `json:"value" yaml:"value"`
	// Tags are the labels of the measurement
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Sink receives counter measurements
type Sink interface {
	Record(ctx context.Context, c Counter)
}

var (
	_ Sink = (*PrometheusSink)(nil)
	_ Sink = (*OTelSink)(nil)
	_ Sink = (*Recorder)(nil)
	_ Sink = multi(nil)
)

// PrometheusSink adds measurements to a counter vector labeled by identity and type
type PrometheusSink struct {
	counter *prometheus.CounterVec
}

// NewPrometheusSink creates the scan metric counter and registers it on the registry
func NewPrometheusSink(registry prometheus.Registerer) *PrometheusSink {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sodascan_scan_metric_total",
			Help: "Values of the numeric metrics reported by data quality scans",
		},
		[]string{"identity", TypeLabel},
	)
	registry.MustRegister(counter)
	return &PrometheusSink{counter: counter}
}

// Record adds the value to the series of the counter
func (p *PrometheusSink) Record(ctx context.Context, c Counter) {
	if c.Value < 0 {
		logger.FromContext(ctx).DebugContext(ctx, "Skipping negative value for prometheus counter", "name", c.Name, "value", c.Value)
		return
	}
	p.counter.WithLabelValues(c.Name, c.Tags[TypeLabel]).Add(c.Value)
}

// fallbackInstrument is used for names the OpenTelemetry SDK rejects as instrument names
const fallbackInstrument = "sodascan.scan.metric"

// OTelSink reports every series as its own Float64Counter
type OTelSink struct {
	meter metric.Meter
	mu    sync.Mutex
	// counters caches the instruments by name
	counters map[string]metric.Float64Counter
}

// NewOTelSink creates a sink creating its instruments from the meter
func NewOTelSink(meter metric.Meter) *OTelSink {
	return &OTelSink{
		meter:    meter,
		counters: make(map[string]metric.Float64Counter),
	}
}

// Record adds the value to the counter named after the measurement
func (o *OTelSink) Record(ctx context.Context, c Counter) {
	log := logger.FromContext(ctx)
	if c.Value < 0 {
		log.DebugContext(ctx, "Skipping negative value for otel counter", "name", c.Name, "value", c.Value)
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(c.Tags)+1)
	for k, v := range c.Tags {
		attrs = append(attrs, attribute.String(k, v))
	}

	counter, err := o.counter(c.Name)
	if err != nil {
		log.DebugContext(ctx, "Invalid instrument name, using fallback instrument", "name", c.Name, "error", err)
		counter, err = o.counter(fallbackInstrument)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create fallback instrument", "error", err)
			return
		}
		attrs = append(attrs, attribute.String("identity", c.Name))
	}
	counter.Add(ctx, c.Value, metric.WithAttributes(attrs...))
}

func (o *OTelSink) counter(name string) (metric.Float64Counter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.counters[name]; ok {
		return c, nil
	}
	c, err := o.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}
	o.counters[name] = c
	return c, nil
}

// Recorder keeps every measurement in memory
type Recorder struct {
	mu       sync.Mutex
	counters []Counter
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends the measurement
func (r *Recorder) Record(_ context.Context, c Counter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, c)
}

// Counters returns a copy of the recorded measurements in recording order
func (r *Recorder) Counters() []Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.counters)
}

type multi []Sink

// Multi fans every measurement out to all given sinks
func Multi(sinks ...Sink) Sink {
	s := make(multi, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			s = append(s, sink)
		}
	}
	return s
}

func (m multi) Record(ctx context.Context, c Counter) {
	for _, s := range m {
		s.Record(ctx, c)
	}
}
