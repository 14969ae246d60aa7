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

package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testTask struct {
	ID           string         `mapstructure:"id"`
	Verbose      bool           `mapstructure:"verbose"`
	Requirements []string       `mapstructure:"requirements"`
	Timeout      time.Duration  `mapstructure:"timeout"`
	Checks       map[string]any `mapstructure:"checks"`
}

type test[T any] struct {
	name      string
	input     any
	want      T
	expectErr bool
}

func TestDecode(t *testing.T) {
	tests := []test[testTask]{
		{
			name: "weakly typed values",
			input: map[string]any{
				"id":           "scan",
				"verbose":      "true",
				"requirements": "soda-core-postgres,soda-core-duckdb",
				"timeout":      "30m",
			},
			want: testTask{
				ID:           "scan",
				Verbose:      true,
				Requirements: []string{"soda-core-postgres", "soda-core-duckdb"},
				Timeout:      30 * time.Minute,
			},
		},
		{
			name: "nested maps are kept as they are",
			input: map[string]any{
				"checks": map[string]any{
					"checks for orders": []any{"row_count > 0"},
				},
			},
			want: testTask{
				Checks: map[string]any{
					"checks for orders": []any{"row_count > 0"},
				},
			},
		},
		{
			name:      "unknown keys are ignored",
			input:     map[string]any{"id": "scan", "type": "io.kestra.plugin.soda.Scan"},
			want:      testTask{ID: "scan"},
			expectErr: false,
		},
		{
			name:      "invalid input type",
			input:     "invalid input",
			want:      testTask{},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[testTask](tt.input)
			if (err != nil) != tt.expectErr {
				t.Errorf("Decode() error = %v, expectErr %v", err, tt.expectErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	_, err := DecodeStrict[testTask](map[string]any{"id": "scan", "unknown": 1})
	assert.Error(t, err)

	got, err := DecodeStrict[testTask](map[string]any{"id": "scan", "verbose": false})
	assert.NoError(t, err)
	assert.Equal(t, testTask{ID: "scan"}, got)
}
