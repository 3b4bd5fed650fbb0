// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package web serves the status API and the Prometheus metrics of a running simulation.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanetsim/wave-sim/logger"
	"github.com/vanetsim/wave-sim/metrics"
	"github.com/vanetsim/wave-sim/progctx"
	"github.com/vanetsim/wave-sim/simulation"
)

const queryTimeout = 5 * time.Second

// Server is the HTTP front end of a simulation.
type Server struct {
	sim    *simulation.Simulation
	router chi.Router
	// exec runs f on the dispatcher goroutine and waits for it.
	exec func(ctx context.Context, f func()) error
}

func NewServer(sim *simulation.Simulation) *Server {
	s := &Server{
		sim:    sim,
		router: chi.NewRouter(),
	}
	s.exec = s.postAndWait
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/time", s.handleTime)
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
		})
	})
	s.router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is done.
func Serve(ctx *progctx.ProgCtx, addr string, sim *simulation.Simulation) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewServer(sim),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	ctx.Go("web", func() {
		logger.Infof("web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("web server failed: %v", err)
		}
	})
	ctx.Defer(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	return nil
}

func (s *Server) postAndWait(ctx context.Context, f func()) error {
	done := make(chan struct{})
	if !s.sim.PostAsync(func() {
		defer close(done)
		f()
	}) {
		return errors.New("simulation stopped")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) query(r *http.Request, f func()) error {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	return s.exec(ctx, f)
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	var st simulation.TimeStatus
	if err := s.query(r, func() { st = s.sim.TimeStatus() }); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var st []simulation.DeviceStatus
	if err := s.query(r, func() { st = s.sim.Status() }); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.Errorf("invalid device id"))
		return
	}
	var st simulation.DeviceStatus
	var stErr error
	if err = s.query(r, func() { st, stErr = s.sim.DeviceStatus(id) }); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	if stErr != nil {
		respondError(w, http.StatusNotFound, stErr)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("web: encode response failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
