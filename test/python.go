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

package test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakePython imitates the python interpreter running the scan driver.
// It stores the canned result next to the driver and announces the exit code.
const fakePython = `#!/bin/sh
if [ "$1" = "-m" ]; then
  exit 0
fi
test -f "$1" || { echo "driver $1 not found" >&2; exit 9; }
dir=$(dirname "$1")
echo "Soda Core 3.0.0"
echo "Scan summary:"
echo "deprecated option used" >&2
if [ -n "$FAKE_SODA_RESULT" ]; then
  cp "$FAKE_SODA_RESULT" "$dir/result.json"
fi
if [ -z "$FAKE_SODA_NO_MARKER" ]; then
  echo '::{"outputs": {"exitCode": '"${FAKE_SODA_EXIT:-0}"'}}::'
fi
exit ${FAKE_SODA_PROCESS_EXIT:-0}
`

// FakePython writes a python executable serving the given scan result and
// returns the environment making it the python of a scan
func FakePython(t *testing.T, result string) map[string]string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake python needs a posix shell")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("failed to create bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bin, "python"), []byte(fakePython), 0o755); err != nil { // #nosec G306
		t.Fatalf("failed to write fake python: %v", err)
	}

	env := map[string]string{"PATH": bin + string(os.PathListSeparator) + os.Getenv("PATH")}
	if result != "" {
		path := filepath.Join(dir, "result.json")
		if err := os.WriteFile(path, []byte(result), 0o600); err != nil {
			t.Fatalf("failed to write result: %v", err)
		}
		env["FAKE_SODA_RESULT"] = path
	}
	return env
}

// ScanResult returns a scan result document with one numeric metric and one passing check
func ScanResult(t *testing.T, hasErrors, hasWarnings, hasFailures bool) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"defaultDataSource":  "kestra",
		"scanStartTimestamp": "2024-03-01T10:00:00+00:00",
		"scanEndTimestamp":   "2024-03-01T10:00:01+00:00",
		"hasErrors":          hasErrors,
		"hasWarnings":        hasWarnings,
		"hasFailures":        hasFailures,
		"metrics": []any{
			map[string]any{"identity": "metric-kestra-orders-row_count", "metricName": "row_count", "value": 42},
		},
		"checks": []any{
			map[string]any{"identity": "c1", "name": "row_count > 0", "type": "generic", "outcome": "pass"},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal scan result: %v", err)
	}
	return string(b)
}
