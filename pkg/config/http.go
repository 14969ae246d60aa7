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
	"fmt"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/helper"
	"github.com/caas-team/sodascan/internal/logger"
)

var _ Loader = (*HttpLoader)(nil)

// HttpLoader fetches the task from a remote endpoint
type HttpLoader struct {
	cfg    *Config
	client *http.Client
}

// NewHttpLoader creates a loader with the configured timeout
func NewHttpLoader(cfg *Config) *HttpLoader {
	return &HttpLoader{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Task.Http.Timeout,
		},
	}
}

// Load gets the task from the remote endpoint.
// A failed request is retried as defined by the retry configuration,
// unless the endpoint rejected it or the task is malformed.
func (hl *HttpLoader) Load(ctx context.Context) (map[string]any, error) {
	var task map[string]any
	getTaskRetry := helper.Retry(func(ctx context.Context) error {
		var err error
		task, err = hl.GetTask(ctx)
		var serr *ErrTaskStatus
		if (errors.As(err, &serr) && !serr.Temporary()) || errors.Is(err, ErrMalformedTask) {
			return helper.Permanent(err)
		}
		return err
	}, hl.cfg.Task.Http.RetryCfg)

	if err := getTaskRetry(ctx); err != nil {
		logger.FromContext(ctx).Warn("Could not get remote task", "error", err)
		return nil, err
	}
	return task, nil
}

// GetTask gets the remote task once
func (hl *HttpLoader) GetTask(ctx context.Context) (map[string]any, error) {
	log := logger.FromContext(ctx).With("url", hl.cfg.Task.Source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hl.cfg.Task.Source, http.NoBody)
	if err != nil {
		log.Error("Could not create http GET request", "error", err.Error())
		return nil, err
	}
	if hl.cfg.Task.Http.Token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", hl.cfg.Task.Http.Token))
	}

	res, err := hl.client.Do(req) //nolint:bodyclose
	if err != nil {
		log.Error("Http get request failed", "error", err.Error())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err = Body.Close()
		if err != nil {
			log.Error("Failed to close response body", "error", err.Error())
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		log.Error("Http get request failed", "status", res.Status)
		return nil, &ErrTaskStatus{StatusCode: res.StatusCode, Status: res.Status}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Error("Could not read response body", "error", err.Error())
		return nil, err
	}
	log.Debug("Successfully got response")

	var task map[string]any
	if err := yaml.Unmarshal(body, &task); err != nil {
		log.Error("Could not unmarshal response", "error", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrMalformedTask, err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task at %s is empty", ErrMalformedTask, hl.cfg.Task.Source)
	}

	return task, nil
}
