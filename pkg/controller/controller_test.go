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

//go:build !windows

package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/sodascan/pkg/config"
	"github.com/caas-team/sodascan/pkg/db"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/models"
	"github.com/caas-team/sodascan/pkg/runctx"
	"github.com/caas-team/sodascan/pkg/runner"
	"github.com/caas-team/sodascan/pkg/soda"
	"github.com/caas-team/sodascan/pkg/storage"
	"github.com/caas-team/sodascan/test"
)

func newController(t *testing.T, dbase db.DB, cfg config.RunnerConfig) (*ScanController, *metrics.Recorder) {
	t.Helper()
	recorder := metrics.NewRecorder()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	return NewScanController(dbase, recorder, storage.NewLocal(afero.NewOsFs(), t.TempDir()), cfg), recorder
}

func newScan(env map[string]string) *soda.Scan {
	return &soda.Scan{
		Configuration: map[string]any{"data_source kestra": map[string]any{"type": "duckdb"}},
		Checks:        map[string]any{"checks for orders": []any{"row_count > 0"}},
		Env:           env,
	}
}

func TestScanController_Execute(t *testing.T) {
	test.MarkAsLong(t)

	dbase := db.NewInMemory()
	sc, recorder := newController(t, dbase, config.RunnerConfig{Type: "PROCESS", EmptyConfiguration: "skip"})

	env := test.FakePython(t, test.ScanResult(t, false, true, false))
	env["FAKE_SODA_EXIT"] = "2"

	out, err := sc.Execute(context.Background(), newScan(env), runctx.WithExecutionID("exec-1"))
	require.NoError(t, err)

	assert.Equal(t, "exec-1", out.ExecutionID)
	assert.Equal(t, models.StateWarning, out.State)
	assert.Equal(t, 2, out.ExitCode)
	assert.Len(t, recorder.Counters(), 1)

	saved, ok := dbase.Get("exec-1")
	require.True(t, ok)
	assert.Equal(t, *out, saved)

	assert.InDelta(t, 1, testutil.ToFloat64(sc.metrics.scans.WithLabelValues(string(models.StateWarning), "process")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(sc.metrics.duration))
}

func TestScanController_Execute_failure(t *testing.T) {
	test.MarkAsLong(t)

	dbase := db.NewInMemory()
	sc, _ := newController(t, dbase, config.RunnerConfig{Type: "process", EmptyConfiguration: "skip"})

	env := test.FakePython(t, test.ScanResult(t, false, false, false))
	env["FAKE_SODA_NO_MARKER"] = "true"

	_, err := sc.Execute(context.Background(), newScan(env), runctx.WithExecutionID("exec-2"))
	require.Error(t, err)

	var runErr *ErrRunningScan
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "exec-2", runErr.ExecutionID)
	assert.ErrorIs(t, err, soda.ErrMissingExitCode)

	_, ok := dbase.Get("exec-2")
	assert.False(t, ok)
	assert.InDelta(t, 1, testutil.ToFloat64(sc.metrics.scans.WithLabelValues(stateError, "process")), 0)
}

func TestScanController_Execute_defaults(t *testing.T) {
	test.MarkAsShort(t)

	sc, _ := newController(t, nil, config.RunnerConfig{Type: "process", EmptyConfiguration: "reject"})

	scan := newScan(nil)
	scan.Configuration = map[string]any{}

	_, err := sc.Execute(context.Background(), scan)
	if !errors.Is(err, soda.ErrInvalidTask) {
		t.Fatalf("Execute() error = %v, want %v", err, soda.ErrInvalidTask)
	}
	assert.Equal(t, soda.EmptyConfigurationReject, scan.EmptyConfiguration)
	require.NotNil(t, scan.TaskRunner)
	assert.Equal(t, "process", scan.TaskRunner.Type.String())
}

func TestScanController_Execute_policy(t *testing.T) {
	test.MarkAsShort(t)

	tests := []struct {
		name       string
		policy     Policy
		scan       func() *soda.Scan
		wantErr    error
		wantRunner string
	}{
		{
			name:   "runner not allowed",
			policy: Policy{AllowedRunners: []runner.Type{runner.TypeDocker}},
			scan: func() *soda.Scan {
				return newScan(nil)
			},
			wantErr:    ErrRunnerNotAllowed,
			wantRunner: "process",
		},
		{
			name:   "deprecated runner not allowed",
			policy: Policy{AllowedRunners: []runner.Type{runner.TypeDocker}},
			scan: func() *soda.Scan {
				s := newScan(nil)
				s.Runner = "PROCESS"
				return s
			},
			wantErr:    ErrRunnerNotAllowed,
			wantRunner: "process",
		},
		{
			name:   "host files disabled",
			policy: Policy{AllowedRunners: []runner.Type{runner.TypeProcess}},
			scan: func() *soda.Scan {
				s := newScan(nil)
				s.InputFiles = map[string]any{"shadow": "file:///etc/shadow"}
				return s
			},
			wantErr:    soda.ErrInvalidTask,
			wantRunner: "process",
		},
		{
			name:   "invalid runner is labeled unknown",
			policy: Policy{AllowedRunners: []runner.Type{runner.TypeDocker}},
			scan: func() *soda.Scan {
				s := newScan(nil)
				s.Runner = "rm -rf /"
				return s
			},
			wantErr:    soda.ErrInvalidTask,
			wantRunner: runnerUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := newController(t, nil, config.RunnerConfig{Type: "process", EmptyConfiguration: "skip"})
			sc = sc.WithPolicy(tt.policy)

			_, err := sc.Execute(context.Background(), tt.scan())
			require.ErrorIs(t, err, tt.wantErr)

			var runErr *ErrRunningScan
			require.ErrorAs(t, err, &runErr)
			assert.NotEmpty(t, runErr.ExecutionID)
			assert.InDelta(t, 1, testutil.ToFloat64(sc.metrics.scans.WithLabelValues(stateError, tt.wantRunner)), 0)
			assert.Equal(t, 1, testutil.CollectAndCount(sc.metrics.scans), "no series for the raw runner value")
		})
	}
}

func TestScanController_GetMetricCollectors(t *testing.T) {
	sc := NewScanController(nil, nil, nil, config.RunnerConfig{})
	assert.Len(t, sc.GetMetricCollectors(), 2)
}
