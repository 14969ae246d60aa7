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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/config"
)

type API interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterRoutes(ctx context.Context, routes ...Route) error
	// Handler returns the handler serving the registered routes
	Handler() http.Handler
}

type api struct {
	server *http.Server
	router chi.Router
	// routes counts the registered routes, the health route excluded
	routes atomic.Int32
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	// HealthzPath is always served with status ok
	HealthzPath = "/healthz"
	// MethodAny registers a route for every http method
	MethodAny = "Handle"
)

var supportedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch,
}

// New creates a new api listening on the configured address
func New(cfg config.ApiConfig) API {
	return newAPI(cfg.ListeningAddress)
}

func newAPI(addr string) *api {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(HealthzPath, okHandler)
	return &api{
		server: &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router: r,
	}
}

// Run serves the registered routes until the context is done or the server is shut down
func (a *api) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if a.routes.Load() == 0 {
		return fmt.Errorf("failed serving API: no routes initialized")
	}

	ln, err := net.Listen("tcp", a.server.Addr) //nolint:noctx // the server is stopped through Shutdown
	if err != nil {
		log.Error("Failed to listen", "addr", a.server.Addr, "error", err)
		return fmt.Errorf("failed serving API: %w", err)
	}

	cErr := make(chan error, 1)
	go func() {
		defer close(cErr)
		log.Info("Serving Api", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil {
			cErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed serving API: %w", ctx.Err())
	case err := <-cErr:
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			log.Info("Api server closed")
			return nil
		}
		log.Error("Failed serving API", "error", err)
		return fmt.Errorf("failed serving API: %w", err)
	}
}

// Shutdown gracefully shuts down the api server.
// The error of the given context is returned alongside any shutdown error.
func (a *api) Shutdown(ctx context.Context) error {
	errC := ctx.Err()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.FromContext(ctx).Error("Failed to shutdown api server", "error", err)
		return fmt.Errorf("failed shutting down API: %w", errors.Join(errC, err))
	}
	return errC
}

func (a *api) Handler() http.Handler {
	return a.router
}

// Route is a single endpoint of the api.
// Method is an http method or MethodAny.
type Route struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

// RegisterRoutes registers the routes behind the request id and request logging middlewares.
// No route is registered if any of them has an unsupported method.
func (a *api) RegisterRoutes(ctx context.Context, routes ...Route) error {
	for _, route := range routes {
		if route.Method != MethodAny && !slices.Contains(supportedMethods, route.Method) {
			return fmt.Errorf("unsupported method for %s: %s", route.Path, route.Method)
		}
	}

	a.router.Group(func(r chi.Router) {
		r.Use(middleware.RequestID, logger.Middleware(ctx), logRequests)
		for _, route := range routes {
			if route.Method == MethodAny {
				r.Handle(route.Path, route.Handler)
				continue
			}
			r.Method(route.Method, route.Path, route.Handler)
		}
	})
	a.routes.Add(int32(len(routes))) //nolint:gosec // route count is small
	return nil
}

// logRequests logs every served request with its status and duration
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.FromContext(r.Context()).Debug("Request served",
			"status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(start))
	})
}

// okHandler serves status ok
func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.FromContext(r.Context()).Error("Could not write response", "error", err.Error())
	}
}
