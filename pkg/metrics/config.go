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
	"fmt"
	"time"

	"github.com/caas-team/sodascan/internal/logger"
)

// Exporter selects where scan metrics are exported to
type Exporter string

const (
	// Prometheus only exposes the metrics on the /metrics endpoint
	Prometheus Exporter = "prometheus"
	// OTLP additionally pushes metrics and traces to an OTLP/gRPC collector
	OTLP Exporter = "otlp"
)

// String returns the string representation of the exporter
func (e Exporter) String() string {
	return string(e)
}

// Validate validates the exporter
func (e Exporter) Validate() error {
	switch e {
	case Prometheus, OTLP:
		return nil
	default:
		return fmt.Errorf("unsupported exporter type: %s", e.String())
	}
}

// IsExporting returns true if the exporter pushes to a collector
func (e Exporter) IsExporting() bool {
	return e == OTLP
}

// Config holds the telemetry configuration
type Config struct {
	// Exporter is the exporter used for the scan metrics
	Exporter Exporter `yaml:"exporter" mapstructure:"exporter"`
	// Url is the host:port of the collector the metrics and traces are pushed to
	Url string `yaml:"url" mapstructure:"url"`
	// Token is the token used to authenticate with the collector
	Token string `yaml:"token" mapstructure:"token"`
	// Insecure disables TLS towards the collector
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the push interval of the periodic metric reader
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// Validate checks the telemetry configuration
func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := c.Exporter.Validate(); err != nil {
		log.ErrorContext(ctx, "Invalid exporter", "error", err)
		return err
	}

	if c.Exporter.IsExporting() && c.Url == "" {
		log.ErrorContext(ctx, "Url is required for otlp exporter", "exporter", c.Exporter)
		return fmt.Errorf("url is required for otlp exporter %q", c.Exporter)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative: %s", c.Interval)
	}
	return nil
}

// headers returns the headers sent to the collector
func (c *Config) headers() map[string]string {
	headers := make(map[string]string)
	if c.Token != "" {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", c.Token)
	}
	return headers
}
