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

package soda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/models"
	"github.com/caas-team/sodascan/pkg/runner"
	"github.com/caas-team/sodascan/pkg/storage"
)

// interpret reads the result file of the run, reports its numeric metrics and forwards its logs
func interpret(ctx context.Context, store storage.Storage, sink metrics.Sink, out *runner.ScriptOutput) (*models.ScanResult, error) {
	result, err := parseResult(ctx, store, out)
	if err != nil {
		return nil, err
	}
	reportMetrics(ctx, sink, result)
	forwardLogs(ctx, result)
	return result, nil
}

// parseResult decodes the result file the runner stored
func parseResult(ctx context.Context, store storage.Storage, out *runner.ScriptOutput) (*models.ScanResult, error) {
	uri, ok := out.OutputFiles[resultFile]
	if !ok || uri == "" {
		return nil, ErrResultNotFound
	}

	f, err := store.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResultNotFound, err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			logger.FromContext(ctx).Warn("Failed to close result file", "error", cErr)
		}
	}()

	var result models.ScanResult
	if err := json.NewDecoder(f).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse scan result: %w", err)
	}
	return &result, nil
}

// reportMetrics reports every numeric metric as counter named by its identity. Other metrics are skipped.
func reportMetrics(ctx context.Context, sink metrics.Sink, result *models.ScanResult) {
	log := logger.FromContext(ctx)
	for _, m := range result.Metrics {
		value, ok := m.Numeric()
		if !ok {
			log.Debug("Skipping metric without numeric value", "identity", m.Identity, "metric", m.MetricName)
			continue
		}
		sink.Record(ctx, metrics.Counter{
			Name:  m.Identity,
			Value: value,
			Tags:  map[string]string{metrics.TypeLabel: m.MetricName},
		})
	}
}

// forwardLogs writes the logs of the scan to the task logger
func forwardLogs(ctx context.Context, result *models.ScanResult) {
	log := logger.FromContext(ctx)
	for _, l := range result.Logs {
		log.Debug(l.Message, "source", "soda", "sodaLevel", l.Level, "index", l.Index)
	}
}
