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

// CheckOutcome is the evaluation result of a single check
type CheckOutcome string

const (
	OutcomePass CheckOutcome = "pass"
	OutcomeWarn CheckOutcome = "warn"
	OutcomeFail CheckOutcome = "fail"
	// OutcomeNone is used for checks that were not evaluated
	OutcomeNone CheckOutcome = ""
)

// Check describes one check definition and its outcome
type Check struct {
	Identity   string       `json:"identity" yaml:"identity"`
	Name       string       `json:"name" yaml:"name"`
	Type       string       `json:"type" yaml:"type"`
	Definition string       `json:"definition" yaml:"definition"`
	DataSource string       `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	Table      string       `json:"table,omitempty" yaml:"table,omitempty"`
	Column     string       `json:"column,omitempty" yaml:"column,omitempty"`
	Metrics    []string     `json:"metrics" yaml:"metrics"`
	Outcome    CheckOutcome `json:"outcome" yaml:"outcome"`
}

// Log is a log record emitted by the scanning library during the scan
type Log struct {
	Level     string    `json:"level" yaml:"level"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp Timestamp `json:"timestamp" yaml:"timestamp"`
	Index     int       `json:"index" yaml:"index"`
}
