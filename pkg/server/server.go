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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/api"
	"github.com/caas-team/sodascan/pkg/config"
	"github.com/caas-team/sodascan/pkg/controller"
	"github.com/caas-team/sodascan/pkg/db"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/runner"
	"github.com/caas-team/sodascan/pkg/storage"
)

const shutdownTimeout = time.Second * 30

// Server runs scans on request and serves their outputs
type Server struct {
	cfg        *config.Config
	version    string
	db         db.DB
	api        api.API
	metrics    metrics.Provider
	storage    storage.Storage
	controller *controller.ScanController
	// limiter is nil when every scan is accepted
	limiter *rate.Limiter
}

// New creates a new server
func New(cfg *config.Config, version string) *Server {
	s := &Server{
		cfg:     cfg,
		version: version,
		db:      db.NewInMemory(),
		api:     api.New(cfg.Api),
		metrics: metrics.New(cfg.Telemetry, version),
		storage: storage.NewLocal(afero.NewOsFs(), cfg.Storage.Path),
	}
	if cfg.Api.ScanRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Api.ScanRate), cfg.Api.ScanBurst)
	}
	return s
}

// Run starts the server and blocks until the context is done
// or the api fails
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	if err := s.setup(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.api.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("Server stopped")
		return nil
	}
	return err
}

// setup initializes the telemetry and registers the routes
func (s *Server) setup(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if err := s.metrics.Initialize(ctx); err != nil {
		log.Error("Failed to initialize telemetry", "error", err)
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	s.controller = controller.NewScanController(s.db, s.metrics.Sink(), s.storage, s.cfg.Runner).
		WithPolicy(s.policy())
	for _, collector := range s.controller.GetMetricCollectors() {
		if err := s.metrics.GetRegistry().Register(collector); err != nil {
			log.Error("Could not add metrics collector to registry", "error", err)
		}
	}

	if err := s.api.RegisterRoutes(ctx, s.routes()...); err != nil {
		log.Error("Failed to register routes", "error", err)
		return fmt.Errorf("failed to register routes: %w", err)
	}
	return nil
}

// policy restricts submitted scans to the allowed runners, docker by default
func (s *Server) policy() controller.Policy {
	p := controller.Policy{HostFiles: s.cfg.Api.HostFiles}
	for _, r := range s.cfg.Api.AllowedRunners {
		if t, err := runner.ParseType(r); err == nil {
			p.AllowedRunners = append(p.AllowedRunners, t)
		}
	}
	if len(p.AllowedRunners) == 0 {
		p.AllowedRunners = []runner.Type{runner.TypeDocker}
	}
	return p
}

// shutdown stops the api and flushes the telemetry
func (s *Server) shutdown(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("Shutting down server")

	errA := s.api.Shutdown(ctx)
	if errors.Is(errA, context.Canceled) {
		errA = nil
	}

	// ctx is already done, flushing needs a context of its own
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	errM := s.metrics.Shutdown(sctx)

	if err := errors.Join(errA, errM); err != nil {
		log.Error("Failed to shutdown gracefully", "error", err)
		return fmt.Errorf("failed to shutdown gracefully: %w", err)
	}
	return ctx.Err()
}
