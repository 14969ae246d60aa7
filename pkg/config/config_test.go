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

package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caas-team/sodascan/internal/helper"
	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/metrics"
)

var fm = &FlagsNameMapping{
	TaskSource:         "file",
	TaskHttpRetryCount: "taskHttpRetryCount",
	RunnerType:         "runner",
	EmptyConfiguration: "emptyConfiguration",
	StoragePath:        "storagePath",
	ApiAddress:         "apiAddress",
}

func validConfig() *Config {
	cfg := NewConfig()
	cfg.SetRunnerType("docker")
	cfg.SetEmptyConfiguration("skip")
	cfg.SetStoragePath(".sodascan/storage")
	cfg.SetApiAddress(":8080")
	cfg.SetTelemetryExporter("prometheus")
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	ctx, cancel := logger.NewContextWithLogger(context.Background())
	defer cancel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{name: "config ok", modify: func(c *Config) {}},
		{name: "process runner", modify: func(c *Config) { c.SetRunnerType("PROCESS") }},
		{name: "unknown runner", modify: func(c *Config) { c.SetRunnerType("ssh") }, wantErr: ErrInvalidRunnerType},
		{name: "unknown empty configuration mode", modify: func(c *Config) { c.SetEmptyConfiguration("fail") }, wantErr: ErrInvalidEmptyConfiguration},
		{name: "storage path missing", modify: func(c *Config) { c.SetStoragePath("") }, wantErr: ErrInvalidStoragePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(ctx, fm); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("otlp without url", func(t *testing.T) {
		cfg := validConfig()
		cfg.SetTelemetryExporter(string(metrics.OTLP))
		if err := cfg.Validate(ctx, fm); err == nil {
			t.Error("Validate() error = nil, want error")
		}
	})
}

func TestConfig_ValidateTask(t *testing.T) {
	ctx, cancel := logger.NewContextWithLogger(context.Background())
	defer cancel()

	tests := []struct {
		name    string
		task    TaskConfig
		wantErr error
	}{
		{name: "file", task: TaskConfig{Source: "task.yaml"}},
		{
			name: "url",
			task: TaskConfig{Source: "https://tasks.example.com/scan.yaml", Http: HttpLoaderConfig{
				Timeout:  time.Second,
				RetryCfg: helper.RetryConfig{Count: 1, Delay: time.Second},
			}},
		},
		{name: "source missing", task: TaskConfig{}, wantErr: ErrInvalidTaskSource},
		{name: "url malformed", task: TaskConfig{Source: "https://tasks example.com"}, wantErr: ErrInvalidTaskSource},
		{
			name:    "retry count to high",
			task:    TaskConfig{Source: "https://tasks.example.com/scan.yaml", Http: HttpLoaderConfig{RetryCfg: helper.RetryConfig{Count: 100}}},
			wantErr: ErrInvalidTaskHttpRetryCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Task = tt.task
			err := cfg.ValidateTask(ctx, fm)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateApi(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateApi(context.Background(), fm); err != nil {
		t.Errorf("ValidateApi() error = %v", err)
	}
	cfg.SetApiAddress("")
	if err := cfg.ValidateApi(context.Background(), fm); !errors.Is(err, ErrInvalidApiAddress) {
		t.Errorf("ValidateApi() error = %v, want %v", err, ErrInvalidApiAddress)
	}
}

func TestConfig_ValidateApi_allowedRunners(t *testing.T) {
	tests := []struct {
		name    string
		runners []string
		wantErr bool
	}{
		{name: "none", runners: nil},
		{name: "docker and process", runners: []string{"docker", "PROCESS"}},
		{name: "unknown runner", runners: []string{"docker", "ssh"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.SetApiAllowedRunners(tt.runners)
			err := cfg.ValidateApi(context.Background(), fm)
			if tt.wantErr != errors.Is(err, ErrInvalidApiAllowedRunners) {
				t.Errorf("ValidateApi() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateApi_scanRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		burst   int
		wantErr bool
	}{
		{name: "unlimited", rate: 0, burst: 0},
		{name: "limited", rate: 0.5, burst: 2},
		{name: "negative rate", rate: -1, burst: 1, wantErr: true},
		{name: "rate without burst", rate: 1, burst: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.SetApiScanRate(tt.rate, tt.burst)
			err := cfg.ValidateApi(context.Background(), fm)
			if tt.wantErr != errors.Is(err, ErrInvalidApiScanRate) {
				t.Errorf("ValidateApi() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Setters(t *testing.T) {
	cfg := NewConfig()
	cfg.SetTaskSource("https://tasks.example.com/scan.yaml")
	cfg.SetTaskHttpToken("SECRET")
	cfg.SetTaskHttpTimeout(30)
	cfg.SetTaskHttpRetryCount(3)
	cfg.SetTaskHttpRetryDelay(2)
	cfg.SetWorkDir("/var/lib/sodascan")
	cfg.SetTelemetryUrl("collector:4317")
	cfg.SetTelemetryToken("token")
	cfg.SetTelemetryInsecure(true)
	cfg.SetTelemetryInterval(15)

	want := TaskConfig{
		Source: "https://tasks.example.com/scan.yaml",
		Http: HttpLoaderConfig{
			Token:    "SECRET",
			Timeout:  30 * time.Second,
			RetryCfg: helper.RetryConfig{Count: 3, Delay: 2 * time.Second},
		},
	}
	if cfg.Task != want {
		t.Errorf("Task = %+v, want %+v", cfg.Task, want)
	}
	if !cfg.Task.IsHttp() {
		t.Error("IsHttp() = false, want true")
	}
	if cfg.Runner.WorkDir != "/var/lib/sodascan" {
		t.Errorf("WorkDir = %q", cfg.Runner.WorkDir)
	}
	wantTelemetry := metrics.Config{Url: "collector:4317", Token: "token", Insecure: true, Interval: 15 * time.Second}
	if cfg.Telemetry != wantTelemetry {
		t.Errorf("Telemetry = %+v, want %+v", cfg.Telemetry, wantTelemetry)
	}
}
