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

package db

import (
	"sync"

	"github.com/caas-team/sodascan/pkg/soda"
)

// DB stores the outputs of finished scans by execution id
type DB interface {
	Save(output *soda.Output)
	Get(executionID string) (output soda.Output, ok bool)
	List() map[string]soda.Output
}

var _ DB = (*InMemory)(nil)

// InMemory keeps the outputs for the lifetime of the process.
// Nothing is evicted, the server is expected to be restarted
// or scaled out before memory becomes a concern.
type InMemory struct {
	data sync.Map
}

// NewInMemory creates a new in-memory database
func NewInMemory() *InMemory {
	return &InMemory{
		data: sync.Map{},
	}
}

// Save stores a copy of the output. Outputs without an execution id are ignored.
func (i *InMemory) Save(output *soda.Output) {
	if output == nil || output.ExecutionID == "" {
		return
	}
	i.data.Store(output.ExecutionID, *output)
}

func (i *InMemory) Get(executionID string) (soda.Output, bool) {
	tmp, ok := i.data.Load(executionID)
	if !ok {
		return soda.Output{}, false
	}
	// this should not fail, otherwise this will panic
	return tmp.(soda.Output), true
}

// Returns a copy of the map
func (i *InMemory) List() map[string]soda.Output {
	outputs := make(map[string]soda.Output)
	i.data.Range(func(key, value any) bool {
		// this assertion should not fail, unless we have a bug somewhere
		outputs[key.(string)] = value.(soda.Output)
		return true
	})

	return outputs
}
