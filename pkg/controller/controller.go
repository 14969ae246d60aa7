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

package controller

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/caas-team/sodascan/internal/httpclient"
	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/config"
	"github.com/caas-team/sodascan/pkg/db"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/runctx"
	"github.com/caas-team/sodascan/pkg/runner"
	"github.com/caas-team/sodascan/pkg/soda"
	"github.com/caas-team/sodascan/pkg/storage"
)

const (
	// stateError is the state label of scans that did not produce a result
	stateError = "ERROR"
	// fetchTimeout bounds the download of a single remote input file
	fetchTimeout = 30 * time.Second
	// runnerUnknown is the runner label of tasks with an invalid runner
	runnerUnknown = "unknown"
)

// Policy restricts what a task may do on the host
type Policy struct {
	// AllowedRunners are the runner types tasks may use
	AllowedRunners []runner.Type
	// HostFiles allows file:// input files
	HostFiles bool
}

// ScanController executes scans with the configured defaults
// and keeps their outputs.
type ScanController struct {
	db      db.DB
	sink    metrics.Sink
	storage storage.Storage
	fs      afero.Fs
	cfg     config.RunnerConfig
	client  *http.Client
	policy  *Policy
	metrics scanMetrics
}

type scanMetrics struct {
	scans    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewScanController creates a new ScanController.
// dbase may be nil if outputs do not need to be kept.
func NewScanController(dbase db.DB, sink metrics.Sink, store storage.Storage, cfg config.RunnerConfig) *ScanController {
	return &ScanController{
		db:      dbase,
		sink:    sink,
		storage: store,
		fs:      afero.NewOsFs(),
		cfg:     cfg,
		client:  httpclient.New(fetchTimeout),
		metrics: newScanMetrics(),
	}
}

// WithPolicy restricts the executed tasks, without a policy every task runs
func (sc *ScanController) WithPolicy(p Policy) *ScanController {
	sc.policy = &p
	return sc
}

func newScanMetrics() scanMetrics {
	return scanMetrics{
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sodascan_scans_total",
				Help: "Number of executed scans by final state",
			},
			[]string{"state", "runner"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sodascan_scan_duration_seconds",
				Help:    "Duration of the scan executions",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"runner"},
		),
	}
}

// GetMetricCollectors returns the collectors of the scan executions
func (sc *ScanController) GetMetricCollectors() []prometheus.Collector {
	return []prometheus.Collector{sc.metrics.scans, sc.metrics.duration}
}

// Execute applies the configured defaults to the scan, runs it
// and saves the output.
func (sc *ScanController) Execute(ctx context.Context, scan *soda.Scan, opts ...runctx.Option) (*soda.Output, error) {
	ctx = httpclient.IntoContext(ctx, sc.client)
	log := logger.FromContext(ctx)

	// an invalid default leaves the task's own resolution in place
	defaultRunner, _ := runner.ParseType(sc.cfg.Type)
	scan.ApplyDefaults(defaultRunner, soda.EmptyConfiguration(sc.cfg.EmptyConfiguration))

	workDir := sc.cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "sodascan")
	}
	rcOpts := []runctx.Option{runctx.WithFs(sc.fs, workDir)}
	if sc.policy != nil && !sc.policy.HostFiles {
		rcOpts = append(rcOpts, runctx.WithoutHostFiles())
	}
	rc := runctx.New(sc.storage, sc.sink, append(rcOpts, opts...)...)

	runnerLabel := runnerUnknown
	rt, rtErr := scan.RunnerType()
	if rtErr == nil {
		runnerLabel = rt.String()
	}

	if sc.policy != nil && rtErr == nil && !slices.Contains(sc.policy.AllowedRunners, rt) {
		sc.metrics.scans.WithLabelValues(stateError, runnerLabel).Inc()
		log.WarnContext(ctx, "Runner is not allowed", "execution", rc.ExecutionID, "runner", rt)
		return nil, &ErrRunningScan{ExecutionID: rc.ExecutionID, Err: fmt.Errorf("%w: %s", ErrRunnerNotAllowed, rt)}
	}

	start := time.Now()
	out, err := scan.Run(ctx, rc)
	sc.metrics.duration.WithLabelValues(runnerLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		sc.metrics.scans.WithLabelValues(stateError, runnerLabel).Inc()
		log.ErrorContext(ctx, "Failed to execute scan", "execution", rc.ExecutionID, "error", err)
		return nil, &ErrRunningScan{ExecutionID: rc.ExecutionID, Err: err}
	}
	sc.metrics.scans.WithLabelValues(string(out.State), runnerLabel).Inc()

	if sc.db != nil {
		sc.db.Save(out)
	}
	return out, nil
}
