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

import "testing"

// MarkAsShort marks the test as short, so it will be skipped if the -test.short flag is not provided.
func MarkAsShort(t *testing.T) {
	t.Helper()
	if !testing.Short() {
		t.Skip("skipping short tests, to run them use the -test.short flag")
	}
}

// MarkAsLong marks the test as long, so it will be skipped if the -test.short flag is provided.
func MarkAsLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping long tests, to run them remove the -test.short flag")
	}
}
