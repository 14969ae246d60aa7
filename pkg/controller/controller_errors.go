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

package controller

import (
	"errors"
	"fmt"
)

// ErrRunnerNotAllowed is returned for tasks using a runner the policy does not allow
var ErrRunnerNotAllowed = errors.New("runner not allowed")

type ErrRunningScan struct {
	ExecutionID string
	Err         error
}

func (e *ErrRunningScan) Error() string {
	return fmt.Sprintf("scan %s failed: %v", e.ExecutionID, e.Err)
}

func (e *ErrRunningScan) Unwrap() error {
	return e.Err
}
