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

package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/sodascan/internal/logger"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestAPI_RegisterRoutes(t *testing.T) {
	type call struct {
		method string
		path   string
		status int
	}
	tests := []struct {
		name    string
		routes  []Route
		want    []call
		wantErr bool
	}{
		{
			name:   "only health route without registered routes",
			routes: nil,
			want: []call{
				{method: http.MethodGet, path: HealthzPath, status: http.StatusOK},
				{method: http.MethodGet, path: "/v1/scans", status: http.StatusNotFound},
			},
		},
		{
			name: "scan routes",
			routes: []Route{
				{Path: "/v1/scans", Method: http.MethodPost, Handler: status(http.StatusCreated)},
				{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)},
				{Path: "/v1/scans/{executionId}", Method: http.MethodGet, Handler: status(http.StatusAccepted)},
				{Path: "/v1/scans/{executionId}", Method: http.MethodDelete, Handler: status(http.StatusNoContent)},
				{Path: "/v1/scans/{executionId}", Method: http.MethodPut, Handler: status(http.StatusOK)},
				{Path: "/v1/scans/{executionId}", Method: http.MethodPatch, Handler: status(http.StatusOK)},
				{Path: "/metrics", Method: MethodAny, Handler: status(http.StatusOK)},
			},
			want: []call{
				{method: http.MethodPost, path: "/v1/scans", status: http.StatusCreated},
				{method: http.MethodGet, path: "/v1/scans", status: http.StatusOK},
				{method: http.MethodGet, path: "/v1/scans/abc", status: http.StatusAccepted},
				{method: http.MethodDelete, path: "/v1/scans/abc", status: http.StatusNoContent},
				{method: http.MethodPut, path: "/v1/scans/abc", status: http.StatusOK},
				{method: http.MethodPatch, path: "/v1/scans/abc", status: http.StatusOK},
				{method: http.MethodGet, path: "/metrics", status: http.StatusOK},
				{method: http.MethodHead, path: "/metrics", status: http.StatusOK},
				{method: http.MethodDelete, path: "/v1/scans", status: http.StatusMethodNotAllowed},
				{method: http.MethodGet, path: HealthzPath, status: http.StatusOK},
			},
		},
		{
			name: "unsupported method registers nothing",
			routes: []Route{
				{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)},
				{Path: "/v1/scans", Method: "unknown", Handler: status(http.StatusOK)},
			},
			want: []call{
				{method: http.MethodGet, path: "/v1/scans", status: http.StatusNotFound},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAPI("localhost:0")

			err := a.RegisterRoutes(context.Background(), tt.routes...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			for _, c := range tt.want {
				rec := httptest.NewRecorder()
				a.Handler().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, http.NoBody))
				assert.Equal(t, c.status, rec.Code, "%s %s", c.method, c.path)
			}
		})
	}
}

func TestAPI_RegisterRoutes_twice(t *testing.T) {
	a := newAPI("localhost:0")
	ctx := context.Background()

	require.NoError(t, a.RegisterRoutes(ctx, Route{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)}))
	require.NoError(t, a.RegisterRoutes(ctx, Route{Path: "/openapi", Method: http.MethodGet, Handler: status(http.StatusOK)}))

	for _, path := range []string{"/v1/scans", "/openapi"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAPI_middlewares(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.IntoContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	a := newAPI("localhost:0")
	require.NoError(t, a.RegisterRoutes(ctx,
		Route{Path: "/panic", Method: http.MethodGet, Handler: func(w http.ResponseWriter, r *http.Request) {
			panic("scan exploded")
		}},
		Route{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)},
	))

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	buf.Reset()
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scans", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Request served"`)
	assert.Contains(t, out, `"path":"/v1/scans"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"requestId":`)
}

func TestAPI_RunWhenContextCanceled(t *testing.T) {
	a := newAPI("localhost:0")
	require.NoError(t, a.RegisterRoutes(context.Background(), Route{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_ = a.Shutdown(context.Background())
}

func TestAPI_RunAndShutdown(t *testing.T) {
	a := newAPI("localhost:0")
	require.NoError(t, a.RegisterRoutes(context.Background(), Route{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)}))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		_ = a.Shutdown(context.Background())
		select {
		case err := <-done:
			return assert.NoError(t, err)
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAPI_RunWithoutRoutes(t *testing.T) {
	a := newAPI("localhost:0")
	assert.Error(t, a.Run(context.Background()))
}

func TestAPI_RunInvalidAddress(t *testing.T) {
	a := newAPI("localhost:-1")
	require.NoError(t, a.RegisterRoutes(context.Background(), Route{Path: "/v1/scans", Method: http.MethodGet, Handler: status(http.StatusOK)}))
	assert.Error(t, a.Run(context.Background()))
}

func Test_okHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	okHandler(rec, httptest.NewRequest(http.MethodGet, HealthzPath, http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
