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

package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearlydefined/catalogd/pkg/stats"
)

// StatsEngine is the subset of pkg/stats.Engine the /stats route drives.
type StatsEngine interface {
	Get(ctx context.Context, key string) (stats.Stat, bool, error)
}

// handleGetStat serves GET /stats/{key}, a thin surface over the C15 stat
// engine spec §4.14 describes without mandating a route for.
func (s *Server) handleGetStat(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "stats are not enabled")
		return
	}
	key := chi.URLParam(r, "key")
	stat, ok, err := s.stats.Get(r.Context(), key)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stat key")
		return
	}
	writeJSON(w, http.StatusOK, stat)
}
