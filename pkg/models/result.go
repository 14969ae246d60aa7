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

// Package models holds the records produced by one scan execution.
// The JSON field names follow the result payload the Soda library builds
// with SodaCloud.build_scan_results, unknown fields are ignored.
package models

// State is the terminal state a scan maps to
type State string

const (
	StateSuccess State = "SUCCESS"
	StateWarning State = "WARNING"
	StateFailed  State = "FAILED"
)

// ScanResult is the parsed output of one scan execution
type ScanResult struct {
	DefinitionName     string    `json:"definitionName" yaml:"definitionName"`
	DefaultDataSource  string    `json:"defaultDataSource" yaml:"defaultDataSource"`
	DataTimestamp      Timestamp `json:"dataTimestamp" yaml:"dataTimestamp"`
	ScanStartTimestamp Timestamp `json:"scanStartTimestamp" yaml:"scanStartTimestamp"`
	ScanEndTimestamp   Timestamp `json:"scanEndTimestamp" yaml:"scanEndTimestamp"`
	HasErrors          bool      `json:"hasErrors" yaml:"hasErrors"`
	HasWarnings        bool      `json:"hasWarnings" yaml:"hasWarnings"`
	HasFailures        bool      `json:"hasFailures" yaml:"hasFailures"`
	Metrics            []Metric  `json:"metrics" yaml:"metrics"`
	Checks             []Check   `json:"checks" yaml:"checks"`
	// The auxiliary lists are passed through untouched. Depending on the
	// library version they hold plain strings or objects.
	AutomatedMonitoringChecks []any `json:"automatedMonitoringChecks" yaml:"automatedMonitoringChecks"`
	Profiling                 []any `json:"profiling" yaml:"profiling"`
	Metadata                  []any `json:"metadata" yaml:"metadata"`
	Logs                      []Log `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// State derives the final state of the scan.
// Warnings take precedence over failures and errors, so a scan that
// both warned and failed is reported as a warning.
func (r *ScanResult) State() State {
	switch {
	case r.HasWarnings:
		return StateWarning
	case r.HasFailures || r.HasErrors:
		return StateFailed
	default:
		return StateSuccess
	}
}

// ChecksByOutcome returns the checks that evaluated to the given outcome
func (r *ScanResult) ChecksByOutcome(outcome CheckOutcome) []Check {
	var matched []Check
	for _, c := range r.Checks {
		if c.Outcome == outcome {
			matched = append(matched, c)
		}
	}
	return matched
}
