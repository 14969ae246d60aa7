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
	"errors"
	"fmt"
	"io"
	"maps"

	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/helper"
)

// Load reads a scan task from YAML or JSON. Unknown properties are rejected.
func Load(r io.Reader) (*Scan, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty task", ErrInvalidTask)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return Decode(raw)
}

// Decode converts the raw task properties into a scan
func Decode(raw map[string]any) (*Scan, error) {
	raw = maps.Clone(raw)
	if dockerOptions, ok := raw["dockerOptions"]; ok {
		if _, set := raw["docker"]; !set {
			raw["docker"] = dockerOptions
		}
	}
	scan, err := helper.DecodeStrict[Scan](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return &scan, nil
}
