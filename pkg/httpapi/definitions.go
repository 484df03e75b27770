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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
)

// listDefinitionsConcurrency bounds POST /definitions' fan-out, matching
// the "throat-style bounded concurrency" recommendation spec §9 makes for
// ListAll (cap 10).
const listDefinitionsConcurrency = 10

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("coordinates")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing coordinates query parameter")
		return
	}
	rc, err := coordinates.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "coordinates did not parse")
		return
	}

	pr, _ := strconv.Atoi(q.Get("pr"))
	force := q.Get("force") == "true"
	// expand (file-content tokens) is accepted but not rendered: spec §1's
	// "no rendering" non-goal covers attachment content expansion.

	def, err := s.definitions.Get(r.Context(), rc.EntityCoordinates, pr, force)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	var coordStrs []string
	if err := json.NewDecoder(r.Body).Decode(&coordStrs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result := make(map[string]model.Document)
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(listDefinitionsConcurrency)
	for _, raw := range coordStrs {
		rc, err := coordinates.Parse(raw)
		if err != nil {
			continue
		}
		g.Go(func() error {
			def, ok, err := s.definitions.GetStored(ctx, rc.EntityCoordinates)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			mu.Lock()
			result[rc.EntityCoordinates.String()] = def
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list definitions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeComputeError maps the error taxonomy's caller-visible subset (spec
// §7: only Validation and UpstreamPermanent ever reach a caller) onto HTTP
// status codes.
func (s *Server) writeComputeError(w http.ResponseWriter, err error) {
	var verr *sharederrors.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message, verr.Details...)
		return
	}
	if sharederrors.IsPermanent(err) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.log.Error(err, "unexpected error computing definition")
	writeError(w, http.StatusInternalServerError, "internal error")
}
