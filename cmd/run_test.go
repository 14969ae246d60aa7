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

//go:build !windows

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/test"
)

func writeTask(t *testing.T, env map[string]string) string {
	t.Helper()
	b, err := yaml.Marshal(map[string]any{
		"configuration": map[string]any{"data_source kestra": map[string]any{"type": "duckdb"}},
		"checks":        map[string]any{"checks for orders": []any{"row_count > 0"}},
		"env":           env,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestRunCmd(t *testing.T) {
	test.MarkAsLong(t)

	tests := []struct {
		name         string
		hasWarnings  bool
		hasFailures  bool
		extraArgs    []string
		wantErr      bool
		wantInOutput string
	}{
		{name: "success", wantInOutput: "state: SUCCESS"},
		{name: "warning", hasWarnings: true, wantInOutput: "state: WARNING"},
		{name: "warning fails if asked", hasWarnings: true, extraArgs: []string{"--fail-on-warning"}, wantErr: true, wantInOutput: "state: WARNING"},
		{name: "failed", hasFailures: true, wantErr: true, wantInOutput: "state: FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := test.FakePython(t, test.ScanResult(t, false, tt.hasWarnings, tt.hasFailures))
			task := writeTask(t, env)

			var buf bytes.Buffer
			cmd := BuildCmd("v1.0.0")
			cmd.SetOut(&buf)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{
				"run", "-f", task, "-o", "yaml",
				"--runnerType", "process",
				"--storagePath", t.TempDir(),
				"--workDir", t.TempDir(),
			}, tt.extraArgs...))

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				assert.True(t, errors.Is(err, ErrScanNotSuccessful), err.Error())
			}
			assert.Contains(t, buf.String(), tt.wantInOutput)
		})
	}
}

func TestRunCmd_invalidTask(t *testing.T) {
	test.MarkAsLong(t)

	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte("configuration: {}\n"), 0o600))

	cmd := BuildCmd("v1.0.0")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "-f", path, "--runnerType", "process", "--storagePath", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrScanNotSuccessful))
}
