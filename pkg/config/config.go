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
	"time"

	"github.com/caas-team/sodascan/internal/helper"
	"github.com/caas-team/sodascan/pkg/metrics"
)

// Config is the startup configuration of sodascan
type Config struct {
	Task      TaskConfig
	Runner    RunnerConfig
	Storage   StorageConfig
	Api       ApiConfig
	Telemetry metrics.Config
}

// TaskConfig is the configuration of the task source
type TaskConfig struct {
	// Source is a file path or an http(s) url the task is loaded from
	Source string
	Http   HttpLoaderConfig
}

// HttpLoaderConfig is the configuration
// for the http task loader
type HttpLoaderConfig struct {
	Token    string
	Timeout  time.Duration
	RetryCfg helper.RetryConfig
}

// RunnerConfig holds the defaults applied to tasks
type RunnerConfig struct {
	// Type is the runner used if a task does not select one
	Type string
	// EmptyConfiguration is the empty configuration mode used if a task does not set one
	EmptyConfiguration string
	// WorkDir is the parent directory of the working directories
	WorkDir string
}

// StorageConfig is the configuration of the internal storage
type StorageConfig struct {
	Path string
}

// ApiConfig is the configuration for the data API
type ApiConfig struct {
	ListeningAddress string
	// ScanRate limits the accepted scans per second, 0 accepts every scan
	ScanRate float64
	// ScanBurst is the number of scans accepted at once when ScanRate is set
	ScanBurst int
	// AllowedRunners are the runner types submitted scans may use, docker if empty
	AllowedRunners []string
	// HostFiles allows submitted scans to read host files through file:// input files
	HostFiles bool
}

// NewConfig creates a new Config
func NewConfig() *Config {
	return &Config{}
}

// SetTaskSource sets the file path or url the task is loaded from
func (c *Config) SetTaskSource(source string) {
	c.Task.Source = source
}

// SetTaskHttpToken sets the bearer token of the http task loader
func (c *Config) SetTaskHttpToken(token string) {
	c.Task.Http.Token = token
}

// SetTaskHttpTimeout sets the http task loader timeout
// timeout in seconds
func (c *Config) SetTaskHttpTimeout(timeout int) {
	c.Task.Http.Timeout = time.Duration(timeout) * time.Second
}

// SetTaskHttpRetryCount sets the http task loader retry count
func (c *Config) SetTaskHttpRetryCount(retryCount int) {
	c.Task.Http.RetryCfg.Count = retryCount
}

// SetTaskHttpRetryDelay sets the http task loader retry delay
// retryDelay in seconds
func (c *Config) SetTaskHttpRetryDelay(retryDelay int) {
	c.Task.Http.RetryCfg.Delay = time.Duration(retryDelay) * time.Second
}

// SetRunnerType sets the default runner type
func (c *Config) SetRunnerType(runnerType string) {
	c.Runner.Type = runnerType
}

// SetEmptyConfiguration sets the default empty configuration mode
func (c *Config) SetEmptyConfiguration(mode string) {
	c.Runner.EmptyConfiguration = mode
}

// SetWorkDir sets the parent directory of the working directories
func (c *Config) SetWorkDir(dir string) {
	c.Runner.WorkDir = dir
}

// SetStoragePath sets the directory of the internal storage
func (c *Config) SetStoragePath(path string) {
	c.Storage.Path = path
}

// SetApiAddress sets the listening address of the api
func (c *Config) SetApiAddress(address string) {
	c.Api.ListeningAddress = address
}

// SetApiScanRate sets the accepted scans per second and the burst size
func (c *Config) SetApiScanRate(rate float64, burst int) {
	c.Api.ScanRate = rate
	c.Api.ScanBurst = burst
}

// SetApiAllowedRunners sets the runner types submitted scans may use
func (c *Config) SetApiAllowedRunners(runners []string) {
	c.Api.AllowedRunners = runners
}

// SetApiHostFiles allows submitted scans to read host files
func (c *Config) SetApiHostFiles(allowed bool) {
	c.Api.HostFiles = allowed
}

// SetTelemetryExporter sets the telemetry exporter
func (c *Config) SetTelemetryExporter(exporter string) {
	c.Telemetry.Exporter = metrics.Exporter(exporter)
}

// SetTelemetryUrl sets the url of the telemetry collector
func (c *Config) SetTelemetryUrl(url string) {
	c.Telemetry.Url = url
}

// SetTelemetryToken sets the bearer token of the telemetry collector
func (c *Config) SetTelemetryToken(token string) {
	c.Telemetry.Token = token
}

// SetTelemetryInsecure disables tls towards the telemetry collector
func (c *Config) SetTelemetryInsecure(insecure bool) {
	c.Telemetry.Insecure = insecure
}

// SetTelemetryInterval sets the push interval of the telemetry exporter
// interval in seconds
func (c *Config) SetTelemetryInterval(interval int) {
	c.Telemetry.Interval = time.Duration(interval) * time.Second
}
