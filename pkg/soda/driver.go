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
	"encoding/json"
	"fmt"
	"strings"
)

// driver renders the Python script executing the scan
type driver struct {
	// workingDir is the working directory as seen by the script
	workingDir string
	verbose    bool
	variables  map[string]any
}

// script returns the source of main.py
func (d driver) script() (string, error) {
	var b strings.Builder
	b.WriteString(`import sys
import json
from soda.scan import Scan
try:
   from soda.soda_cloud.soda_cloud import SodaCloud
except ImportError:
   from soda.cloud.soda_cloud import SodaCloud
from soda.common.logs import configure_logging

configure_logging()

scan = Scan()
`)
	fmt.Fprintf(&b, "scan.set_data_source_name(%s)\n", pyString(DataSourceName))
	fmt.Fprintf(&b, "scan.add_configuration_yaml_file(file_path=%s)\n", pyString(d.path(configurationFile)))
	fmt.Fprintf(&b, "scan.add_sodacl_yaml_file(%s)\n", pyString(d.path(checksFile)))
	b.WriteString("\n")

	if d.verbose {
		b.WriteString("scan.set_verbose()\n")
	}
	if d.variables != nil {
		vars, err := json.Marshal(d.variables)
		if err != nil {
			return "", fmt.Errorf("failed to encode variables: %w", err)
		}
		fmt.Fprintf(&b, "scan.add_variables(json.loads(%s))\n", pyString(string(vars)))
	}

	b.WriteString("\nresult = scan.execute()\n\n")
	fmt.Fprintf(&b, "with open(%s, 'w') as out:\n", pyString(d.path(resultFile)))
	b.WriteString("    out.write(json.dumps(SodaCloud.build_scan_results(scan)))\n\n")
	b.WriteString(`print('::{"outputs": {"exitCode": ' + str(result) + '}}::')` + "\n")
	return b.String(), nil
}

func (d driver) path(name string) string {
	return strings.TrimSuffix(d.workingDir, "/") + "/" + name
}

// pyString quotes s as a Python string literal. JSON string escapes are valid Python escapes.
func pyString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
