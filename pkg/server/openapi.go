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

package server

import (
	"fmt"
	"net/http"

	"github.com/caas-team/sodascan/pkg/api"
	"github.com/caas-team/sodascan/pkg/soda"
)

// Operations documents the scan routes
func Operations() []api.Operation {
	return []api.Operation{
		{
			Path:        "/v1/scans",
			Method:      http.MethodPost,
			Summary:     "Runs a scan and returns its output",
			Tags:        []string{"Scans"},
			RequestBody: soda.Scan{},
			Response:    soda.Output{},
			Errors: map[int]string{
				http.StatusBadRequest:          "The scan task is invalid",
				http.StatusForbidden:           "The runner of the scan is not allowed",
				http.StatusTooManyRequests:     "The scan rate is exceeded",
				http.StatusInternalServerError: "The scan could not be executed",
			},
		},
		{
			Path:     "/v1/scans",
			Method:   http.MethodGet,
			Summary:  "Returns the outputs of all finished scans by execution id",
			Tags:     []string{"Scans"},
			Response: map[string]soda.Output{},
		},
		{
			Path:       fmt.Sprintf("/v1/scans/{%s}", urlParamExecutionID),
			Method:     http.MethodGet,
			Summary:    "Returns the output of a finished scan",
			Tags:       []string{"Scans"},
			PathParams: []string{urlParamExecutionID},
			Response:   soda.Output{},
			Errors: map[int]string{
				http.StatusNotFound: "No scan with this execution id finished",
			},
		},
	}
}
