/*
Copyright 2026 The catalogd Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package httpapi is the thin HTTP route glue spec §1 calls out of scope,
// included here (not left as a stub) because its request/response contract
// is owned by spec §6.1 and needs a concrete mount point. Every handler
// defers immediately to pkg/definition, pkg/crawler, pkg/webhook,
// pkg/stats or pkg/suggestion; no
// business logic lives here beyond parameter parsing and status mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/crawler"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// DefinitionService is the subset of pkg/definition.Service the HTTP
// surface drives.
type DefinitionService interface {
	Get(ctx context.Context, coords coordinates.EntityCoordinates, pr int, force bool) (model.Document, error)
	GetStored(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, bool, error)
	Summarize(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error)
	Find(ctx context.Context, query definitionstore.Query, continuationToken string) (definitionstore.FindResult, error)
}

// Server bundles the handlers that make up the `/definitions`, `/harvest`
// and `/webhook` routes (spec §6.1) into one chi.Mux.
type Server struct {
	definitions DefinitionService
	crawlerCli  crawler.Client
	throttler   Throttler
	stats       StatsEngine
	suggestions SuggestionEngine
	log         logr.Logger
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithThrottler overrides the default always-allow Throttler.
func WithThrottler(t Throttler) Option {
	return func(s *Server) { s.throttler = t }
}

// WithStats enables GET /stats/{key} over engine.
func WithStats(engine StatsEngine) Option {
	return func(s *Server) { s.stats = engine }
}

// WithSuggestions enables GET /suggestions over engine.
func WithSuggestions(engine SuggestionEngine) Option {
	return func(s *Server) { s.suggestions = engine }
}

// New builds a Server. webhookHandlers mounts /webhook/crawler and
// /webhook/github as http.Handler (pkg/webhook.CrawlerHandler /
// GitHubHandler); passed in rather than constructed here so this package
// never needs to know their configuration.
func New(definitions DefinitionService, crawlerCli crawler.Client, log logr.Logger, webhookHandlers map[string]http.Handler, opts ...Option) http.Handler {
	s := &Server{
		definitions: definitions,
		crawlerCli:  crawlerCli,
		throttler:   AllowAllThrottler{},
		log:         log.WithName("httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/definitions", s.handleGetDefinition)
	r.Post("/definitions", s.handleListDefinitions)
	r.Get("/harvest", s.handleGetHarvest)
	r.Post("/harvest", s.handlePostHarvest)
	r.Get("/stats/{key}", s.handleGetStat)
	r.Get("/suggestions", s.handleGetSuggestions)
	for path, h := range webhookHandlers {
		r.Mount(path, h)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
