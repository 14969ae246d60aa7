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
	"net/url"
	"strings"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/runner"
	"github.com/caas-team/sodascan/pkg/soda"
)

// Validate validates the configuration shared by all commands
func (c *Config) Validate(ctx context.Context, fm *FlagsNameMapping) error {
	log := logger.FromContext(ctx)

	var errs []error
	if _, err := runner.ParseType(c.Runner.Type); err != nil {
		log.Error("The runner type is not supported", fm.RunnerType, c.Runner.Type)
		errs = append(errs, ErrInvalidRunnerType)
	}
	switch soda.EmptyConfiguration(c.Runner.EmptyConfiguration) {
	case soda.EmptyConfigurationSkip, soda.EmptyConfigurationReject:
	default:
		log.Error("The empty configuration mode must be skip or reject", fm.EmptyConfiguration, c.Runner.EmptyConfiguration)
		errs = append(errs, ErrInvalidEmptyConfiguration)
	}
	if c.Storage.Path == "" {
		log.Error("The storage path must not be empty", fm.StoragePath, c.Storage.Path)
		errs = append(errs, ErrInvalidStoragePath)
	}
	if err := c.Telemetry.Validate(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateTask validates the task source of the run command
func (c *Config) ValidateTask(ctx context.Context, fm *FlagsNameMapping) error {
	log := logger.FromContext(ctx)

	var errs []error
	if c.Task.Source == "" {
		log.Error("The task source must not be empty", fm.TaskSource, c.Task.Source)
		errs = append(errs, ErrInvalidTaskSource)
	}
	if c.Task.IsHttp() {
		if _, err := url.ParseRequestURI(c.Task.Source); err != nil {
			log.Error("The task url is not a valid url", fm.TaskSource, c.Task.Source)
			errs = append(errs, ErrInvalidTaskSource)
		}
		if c.Task.Http.RetryCfg.Count < 0 || c.Task.Http.RetryCfg.Count >= 5 {
			log.Error("The amount of task http retries should be above 0 and below 5",
				fm.TaskHttpRetryCount, c.Task.Http.RetryCfg.Count)
			errs = append(errs, ErrInvalidTaskHttpRetryCount)
		}
	}

	return errors.Join(errs...)
}

// ValidateApi validates the api configuration of the serve command
func (c *Config) ValidateApi(ctx context.Context, fm *FlagsNameMapping) error {
	log := logger.FromContext(ctx)

	var errs []error
	if c.Api.ListeningAddress == "" {
		log.Error("The api address must not be empty", fm.ApiAddress, c.Api.ListeningAddress)
		errs = append(errs, ErrInvalidApiAddress)
	}
	if c.Api.ScanRate < 0 || (c.Api.ScanRate > 0 && c.Api.ScanBurst < 1) {
		log.Error("The scan rate must not be negative and needs a burst of at least 1",
			fm.ApiScanRate, c.Api.ScanRate, fm.ApiScanBurst, c.Api.ScanBurst)
		errs = append(errs, ErrInvalidApiScanRate)
	}
	for _, r := range c.Api.AllowedRunners {
		if _, err := runner.ParseType(r); err != nil {
			log.Error("The allowed runner type is not supported", fm.ApiAllowedRunners, r)
			errs = append(errs, ErrInvalidApiAllowedRunners)
		}
	}
	return errors.Join(errs...)
}

// IsHttp returns true if the task is loaded from an http(s) url
func (t *TaskConfig) IsHttp() bool {
	return strings.HasPrefix(t.Source, "http://") || strings.HasPrefix(t.Source, "https://")
}
