/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api exposes the ledger over HTTP with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ledger"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/utils"
)

const requestTimeout = 30 * time.Second

// HealthFunc reports database health for GET /health.
type HealthFunc func(ctx context.Context) *database.HealthStatus

type Handler struct {
	svc    ledger.Service
	health HealthFunc
	log    logrus.FieldLogger
}

type Option func(*Handler)

func WithHealth(fn HealthFunc) Option {
	return func(h *Handler) { h.health = fn }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func NewHandler(svc ledger.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, log: utils.NewLogger("HTTP")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.HandleHealth)
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.HandleListAccounts)
		r.Post("/", h.HandleOpenAccount)
		r.Get("/{id}", h.HandleGetAccount)
	})
	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", h.HandleListTransfers)
		r.Post("/", h.HandleTransfer)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("Request handled")
	})
}
