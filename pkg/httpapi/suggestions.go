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

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/suggestion"
)

// SuggestionEngine is the subset of pkg/suggestion.Engine the /suggestions
// route drives.
type SuggestionEngine interface {
	Suggest(ctx context.Context, coords coordinates.EntityCoordinates) (suggestion.Result, bool, error)
}

// handleGetSuggestions serves GET /suggestions?coordinates=…, a thin
// surface over the C14 suggestion engine spec §4.13 describes without
// mandating a route for.
func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeError(w, http.StatusNotFound, "suggestions are not enabled")
		return
	}
	raw := r.URL.Query().Get("coordinates")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing coordinates query parameter")
		return
	}
	rc, err := coordinates.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "coordinates did not parse")
		return
	}

	result, ok, err := s.suggestions.Suggest(r.Context(), rc.EntityCoordinates)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
