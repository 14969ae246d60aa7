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

// Package runctx bundles what the host provides to a single task execution:
// its identity, template variables, renderer, storage, filesystem and metric sink.
package runctx

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/render"
	"github.com/caas-team/sodascan/pkg/storage"
)

// RunContext is the context of one task execution
type RunContext struct {
	// ExecutionID identifies the execution
	ExecutionID string
	// Vars are the variables available to templates
	Vars map[string]any
	// Renderer renders templated task properties
	Renderer *render.Renderer
	// Storage keeps the output files of the execution
	Storage storage.Storage
	// Metrics receives the metrics reported by the execution
	Metrics metrics.Sink
	// Fs is the filesystem working directories are created on
	Fs afero.Fs
	// TempDir is the parent of the working directories
	TempDir string
	// HostFiles allows tasks to read files of the host through file:// references
	HostFiles bool
}

// Option configures a RunContext
type Option func(*RunContext)

// WithVars adds template variables
func WithVars(vars map[string]any) Option {
	return func(rc *RunContext) {
		maps.Copy(rc.Vars, vars)
	}
}

// WithExecutionID sets the execution id instead of generating one
func WithExecutionID(id string) Option {
	return func(rc *RunContext) {
		rc.ExecutionID = id
	}
}

// WithFs sets the filesystem and the parent directory of the working directories
func WithFs(fs afero.Fs, tempDir string) Option {
	return func(rc *RunContext) {
		rc.Fs = fs
		rc.TempDir = tempDir
	}
}

// WithoutHostFiles rejects file:// references of the task
func WithoutHostFiles() Option {
	return func(rc *RunContext) {
		rc.HostFiles = false
	}
}

// New creates a run context with a fresh execution id on the os filesystem
func New(store storage.Storage, sink metrics.Sink, opts ...Option) *RunContext {
	rc := &RunContext{
		ExecutionID: uuid.NewString(),
		Vars:        map[string]any{},
		Renderer:    render.New(),
		Storage:     store,
		Metrics:     sink,
		Fs:          afero.NewOsFs(),
		TempDir:     filepath.Join(os.TempDir(), "sodascan"),
		HostFiles:   true,
	}
	for _, opt := range opts {
		opt(rc)
	}
	rc.Vars["execution"] = map[string]any{"id": rc.ExecutionID}
	return rc
}

// Render renders the template with the context variables and the additional ones
func (rc *RunContext) Render(tpl string, additional map[string]any) (string, error) {
	return rc.Renderer.Render(tpl, rc.vars(additional))
}

// RenderMap renders all keys and values of the map
func (rc *RunContext) RenderMap(m map[string]any, additional map[string]any) (map[string]any, error) {
	return rc.Renderer.RenderMap(m, rc.vars(additional))
}

// RenderStringMap renders all keys and values of the map
func (rc *RunContext) RenderStringMap(m map[string]string, additional map[string]any) (map[string]string, error) {
	return rc.Renderer.RenderStringMap(m, rc.vars(additional))
}

// RenderStrings renders every element of the list
func (rc *RunContext) RenderStrings(s []string, additional map[string]any) ([]string, error) {
	return rc.Renderer.RenderStrings(s, rc.vars(additional))
}

func (rc *RunContext) vars(additional map[string]any) map[string]any {
	vars := maps.Clone(rc.Vars)
	if vars == nil {
		vars = map[string]any{}
	}
	maps.Copy(vars, additional)
	return vars
}

// WorkingDir creates the working directory of the execution
func (rc *RunContext) WorkingDir(ctx context.Context) (string, error) {
	dir := filepath.Join(rc.TempDir, rc.ExecutionID)
	if err := rc.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	logger.FromContext(ctx).Debug("Created working directory", "dir", dir)
	return dir, nil
}

// Cleanup removes the working directory of the execution
func (rc *RunContext) Cleanup(ctx context.Context) {
	dir := filepath.Join(rc.TempDir, rc.ExecutionID)
	if err := rc.Fs.RemoveAll(dir); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove working directory", "dir", dir, "error", err)
	}
}

// StoragePrefix is the storage path the output files of the execution are kept under
func (rc *RunContext) StoragePrefix() string {
	return "executions/" + rc.ExecutionID
}
