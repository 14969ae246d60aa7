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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/api"
	"github.com/caas-team/sodascan/pkg/controller"
	"github.com/caas-team/sodascan/pkg/soda"
)

const (
	urlParamExecutionID = "executionId"
	// maxTaskSize limits the size of a task body
	maxTaskSize = 10 << 20
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error       string `json:"error" yaml:"error"`
	ExecutionID string `json:"executionId,omitempty" yaml:"executionId,omitempty"`
}

func (s *Server) routes() []api.Route {
	return []api.Route{
		{Path: "/v1/scans", Method: http.MethodPost, Handler: s.handleCreateScan},
		{Path: "/v1/scans", Method: http.MethodGet, Handler: s.handleListScans},
		{Path: fmt.Sprintf("/v1/scans/{%s}", urlParamExecutionID), Method: http.MethodGet, Handler: s.handleGetScan},
		{Path: "/openapi", Method: http.MethodGet, Handler: s.handleOpenAPI},
		{
			Path:   "/metrics",
			Method: api.MethodAny,
			Handler: promhttp.HandlerFor(
				s.metrics.GetRegistry(),
				promhttp.HandlerOpts{Registry: s.metrics.GetRegistry()},
			).ServeHTTP,
		},
	}
}

// handleCreateScan runs the scan task of the request body
// and responds with its output once it finished
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if s.limiter != nil && !s.limiter.Allow() {
		log.Warn("Scan rate exceeded")
		w.Header().Set("Retry-After", "1")
		s.respond(w, r, http.StatusTooManyRequests, errorResponse{Error: http.StatusText(http.StatusTooManyRequests)})
		return
	}

	scan, err := soda.Load(http.MaxBytesReader(w, r.Body, maxTaskSize))
	if err != nil {
		log.Warn("Rejected scan task", "error", err)
		s.respond(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	out, err := s.controller.Execute(r.Context(), scan)
	if err != nil {
		res := errorResponse{Error: err.Error()}
		var runErr *controller.ErrRunningScan
		if errors.As(err, &runErr) {
			res.ExecutionID = runErr.ExecutionID
		}
		switch {
		case errors.Is(err, controller.ErrRunnerNotAllowed):
			s.respond(w, r, http.StatusForbidden, res)
			return
		case errors.Is(err, soda.ErrInvalidTask):
			s.respond(w, r, http.StatusBadRequest, res)
			return
		}
		s.respond(w, r, http.StatusInternalServerError, res)
		return
	}

	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.db.List())
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, urlParamExecutionID)
	if id == "" {
		s.respond(w, r, http.StatusBadRequest, errorResponse{Error: http.StatusText(http.StatusBadRequest)})
		return
	}
	out, ok := s.db.Get(id)
	if !ok {
		s.respond(w, r, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound), ExecutionID: id})
		return
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	oapi, err := api.OpenAPI(r.Context(), s.version, Operations()...)
	if err != nil {
		log.Error("Failed to create openapi", "error", err)
		s.respond(w, r, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}

	// the document is yaml unless json is asked for
	if r.Header.Get("Accept") == "application/json" {
		s.write(w, r, http.StatusOK, "application/json", &oapi, json.Marshal)
		return
	}
	s.write(w, r, http.StatusOK, "text/yaml", &oapi, yaml.Marshal)
}

// respond encodes v as yaml if the client accepts it, as json otherwise
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if strings.Contains(r.Header.Get("Accept"), "yaml") {
		s.write(w, r, status, "application/yaml", v, yaml.Marshal)
		return
	}
	s.write(w, r, status, "application/json", v, func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	})
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, mime string, v any, marshal func(any) ([]byte, error)) {
	log := logger.FromContext(r.Context())

	b, err := marshal(v)
	if err != nil {
		log.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, err = w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
		if err != nil {
			log.Error("Failed to write response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
