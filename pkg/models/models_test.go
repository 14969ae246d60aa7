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

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanResult_State(t *testing.T) {
	tests := []struct {
		name   string
		result ScanResult
		want   State
	}{
		{
			name:   "no flags",
			result: ScanResult{},
			want:   StateSuccess,
		},
		{
			name:   "warnings only",
			result: ScanResult{HasWarnings: true},
			want:   StateWarning,
		},
		{
			name:   "warnings win over failures",
			result: ScanResult{HasWarnings: true, HasFailures: true},
			want:   StateWarning,
		},
		{
			name:   "warnings win over errors and failures",
			result: ScanResult{HasWarnings: true, HasFailures: true, HasErrors: true},
			want:   StateWarning,
		},
		{
			name:   "failures only",
			result: ScanResult{HasFailures: true},
			want:   StateFailed,
		},
		{
			name:   "errors only",
			result: ScanResult{HasErrors: true},
			want:   StateFailed,
		},
		{
			name:   "errors and failures",
			result: ScanResult{HasErrors: true, HasFailures: true},
			want:   StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.State(); got != tt.want {
				t.Errorf("ScanResult.State() = %v, want %v", got, tt.want)
			}
		})
	}
}

const sodaResult = `{
  "definitionName": null,
  "defaultDataSource": "kestra",
  "dataTimestamp": "2024-03-01T10:00:00.123456+00:00",
  "scanStartTimestamp": "2024-03-01T10:00:00.123456+00:00",
  "scanEndTimestamp": "2024-03-01T10:00:04+00:00",
  "hasErrors": false,
  "hasWarnings": true,
  "hasFailures": false,
  "metrics": [
    {"identity": "metric-kestra-orderDetail-row_count", "metricName": "row_count", "value": 2155, "dataSourceName": "kestra"},
    {"identity": "metric-kestra-orderDetail-max-unitPrice", "metricName": "max", "value": 263.5},
    {"identity": "metric-kestra-orderDetail-schema", "metricName": "schema", "value": [{"columnName": "id", "sourceDataType": "INT64"}]}
  ],
  "checks": [
    {
      "identity": "kestra-orderDetail-row_count-1",
      "name": "row_count > 0",
      "type": "generic",
      "definition": "checks for orderDetail:\n  row_count > 0",
      "location": {"filePath": "checks.yml", "line": 2, "col": 5},
      "dataSource": "kestra",
      "table": "orderDetail",
      "column": null,
      "metrics": ["metric-kestra-orderDetail-row_count"],
      "outcome": "pass"
    },
    {
      "identity": "kestra-orderDetail-max-unitPrice-2",
      "name": "max(unitPrice)",
      "type": "generic",
      "definition": "checks for orderDetail:\n  max(unitPrice)",
      "dataSource": "kestra",
      "table": "orderDetail",
      "column": "unitPrice",
      "metrics": ["metric-kestra-orderDetail-max-unitPrice"],
      "outcome": "warn"
    }
  ],
  "automatedMonitoringChecks": [],
  "profiling": [],
  "metadata": [],
  "logs": [
    {"level": "INFO", "message": "Scan summary:", "timestamp": "2024-03-01T10:00:04.000001+00:00", "index": 0}
  ]
}`

func TestScanResult_UnmarshalJSON(t *testing.T) {
	var got ScanResult
	require.NoError(t, json.Unmarshal([]byte(sodaResult), &got))

	assert.Equal(t, "kestra", got.DefaultDataSource)
	assert.Equal(t, "", got.DefinitionName)
	assert.True(t, got.HasWarnings)
	assert.Equal(t, StateWarning, got.State())
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 4, 0, time.UTC), got.ScanEndTimestamp.UTC())

	require.Len(t, got.Metrics, 3)
	require.Len(t, got.Checks, 2)
	require.Len(t, got.Logs, 1)

	wantCheck := Check{
		Identity:   "kestra-orderDetail-max-unitPrice-2",
		Name:       "max(unitPrice)",
		Type:       "generic",
		Definition: "checks for orderDetail:\n  max(unitPrice)",
		DataSource: "kestra",
		Table:      "orderDetail",
		Column:     "unitPrice",
		Metrics:    []string{"metric-kestra-orderDetail-max-unitPrice"},
		Outcome:    OutcomeWarn,
	}
	if diff := cmp.Diff(wantCheck, got.Checks[1]); diff != "" {
		t.Errorf("Check mismatch (-want +got):\n%s", diff)
	}

	warned := got.ChecksByOutcome(OutcomeWarn)
	assert.Len(t, warned, 1)
	assert.Equal(t, "max(unitPrice)", warned[0].Name)
}

func TestMetric_Numeric(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOk bool
	}{
		{name: "absent", value: nil, wantOk: false},
		{name: "float", value: 263.5, want: 263.5, wantOk: true},
		{name: "integer", value: 42, want: 42, wantOk: true},
		{name: "json number", value: json.Number("12"), want: 12, wantOk: true},
		{name: "invalid json number", value: json.Number("twelve"), wantOk: false},
		{name: "string", value: "12", wantOk: false},
		{name: "list", value: []any{map[string]any{"columnName": "id"}}, wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Metric{Value: tt.value}.Numeric()
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "null", input: `null`},
		{name: "empty", input: `""`},
		{name: "rfc3339", input: `"2024-03-01T10:00:00Z"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "offset with micros", input: `"2024-03-01T10:00:00.000005+00:00"`, want: time.Date(2024, 3, 1, 10, 0, 0, 5000, time.UTC)},
		{name: "no zone", input: `"2024-03-01T10:00:00.5"`, want: time.Date(2024, 3, 1, 10, 0, 0, 5e8, time.UTC)},
		{name: "space separated", input: `"2024-03-01 10:00:00+00:00"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "not a string", input: `12`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Timestamp.UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("Timestamp.UnmarshalJSON() = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Empty Timestamp `json:"empty"`
		Set   Timestamp `json:"set"`
	}{
		Set: Timestamp{Time: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"empty": null, "set": "2024-03-01T10:00:00Z"}`, string(b))
}
