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

package config

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidTaskSource is returned when the task source is neither a file nor an http url
	ErrInvalidTaskSource = errors.New("invalid task source")
	// ErrInvalidTaskHttpRetryCount is returned when the task http retry count is invalid
	ErrInvalidTaskHttpRetryCount = errors.New("invalid task http retry count")
	// ErrInvalidRunnerType is returned when the default runner type is unknown
	ErrInvalidRunnerType = errors.New("invalid runner type")
	// ErrInvalidEmptyConfiguration is returned when the empty configuration mode is unknown
	ErrInvalidEmptyConfiguration = errors.New("invalid empty configuration mode")
	// ErrInvalidStoragePath is returned when the storage path is empty
	ErrInvalidStoragePath = errors.New("invalid storage path")
	// ErrInvalidApiAddress is returned when the api address is empty
	ErrInvalidApiAddress = errors.New("invalid api address")
	// ErrInvalidApiScanRate is returned when the scan rate is negative or set without a burst
	ErrInvalidApiScanRate = errors.New("invalid api scan rate")
	// ErrInvalidApiAllowedRunners is returned when an allowed runner type is unknown
	ErrInvalidApiAllowedRunners = errors.New("invalid api allowed runners")
	// ErrMalformedTask is returned when a loaded task is empty or not a yaml mapping
	ErrMalformedTask = errors.New("malformed task")
)

// ErrTaskStatus is returned when the task endpoint answers with a status other than 200
type ErrTaskStatus struct {
	StatusCode int
	Status     string
}

func (e *ErrTaskStatus) Error() string {
	return fmt.Sprintf("request failed, status is %s", e.Status)
}

// Temporary reports whether repeating the request may succeed
func (e *ErrTaskStatus) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}
