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

package models

import "encoding/json"

// Metric is a single value computed during the scan
type Metric struct {
	Identity   string `json:"identity" yaml:"identity"`
	MetricName string `json:"metricName" yaml:"metricName"`
	// Value is absent for metrics that could not be computed and is not
	// necessarily a number, e.g. for schema metrics.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
}

// Numeric returns the value as a float64 if it holds a number
func (m Metric) Numeric() (float64, bool) {
	switch v := m.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
