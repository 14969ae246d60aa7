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
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/logger"
)

var _ Loader = (*FileLoader)(nil)

// FileLoader reads the task from a YAML or JSON file
type FileLoader struct {
	path string
	fs   afero.Fs
}

// NewFileLoader creates a loader reading from the os filesystem.
// The source may be a plain path or a file:// url.
func NewFileLoader(cfg *Config) *FileLoader {
	return &FileLoader{
		path: strings.TrimPrefix(cfg.Task.Source, "file://"),
		fs:   afero.NewOsFs(),
	}
}

// Load reads and parses the task file
func (f *FileLoader) Load(ctx context.Context) (map[string]any, error) {
	log := logger.FromContext(ctx)
	log.Info("Reading task from file", "file", f.path)

	b, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		log.Error("Failed to read task file", "path", f.path, "error", err)
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var task map[string]any
	if err := yaml.Unmarshal(b, &task); err != nil {
		log.Error("Failed to parse task file", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMalformedTask, err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task file %s is empty", ErrMalformedTask, f.path)
	}
	return task, nil
}
