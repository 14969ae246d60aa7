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

package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutGet(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewLocal(fs, "/data")

	uri, err := s.Put(ctx, "executions/abc/result.json", strings.NewReader(`{"hasErrors": false}`))
	require.NoError(t, err)
	assert.Equal(t, "storage:///executions/abc/result.json", uri)

	exists, err := afero.Exists(fs, "/data/executions/abc/result.json")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.Get(ctx, uri)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"hasErrors": false}`, string(b))
}

func TestLocal_Get_errors(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(afero.NewMemMapFs(), "/data")

	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "missing file", uri: "storage:///executions/abc/result.json", wantErr: ErrNotFound},
		{name: "wrong scheme", uri: "file:///etc/passwd", wantErr: ErrInvalidURI},
		{name: "host is set", uri: "storage://host/result.json", wantErr: ErrInvalidURI},
		{name: "escapes root", uri: "storage:///../etc/passwd", wantErr: ErrInvalidURI},
		{name: "root itself", uri: "storage:///", wantErr: ErrInvalidURI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Get(ctx, tt.uri)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocal_Put_invalidPath(t *testing.T) {
	s := NewLocal(afero.NewMemMapFs(), "/data")
	_, err := s.Put(context.Background(), "../outside.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, ErrInvalidURI)
}
