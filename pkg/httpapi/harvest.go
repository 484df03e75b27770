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
	"net/http"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/crawler"
	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
)

func (s *Server) handleGetHarvest(w http.ResponseWriter, r *http.Request) {
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
	if tool := r.URL.Query().Get("tool"); tool != "" {
		rc.Tool = tool
	}
	if toolVersion := r.URL.Query().Get("toolVersion"); toolVersion != "" {
		rc.ToolVersion = toolVersion
	}
	if rc.Tool == "" || rc.ToolVersion == "" {
		writeError(w, http.StatusBadRequest, "coordinates must include a tool and toolVersion")
		return
	}

	summary, ok, err := s.definitions.Summarize(r.Context(), rc)
	if err != nil {
		s.writeComputeError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no harvest data stored for these coordinates")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePostHarvest(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSONValue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := harvestRequestSchema.VisitJSON(body); err != nil {
		writeError(w, http.StatusBadRequest, "harvest request failed schema validation", sharederrors.Detail{Message: err.Error()})
		return
	}

	var entries []harvestEntry
	if err := remarshal(body, &entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid harvest request entries")
		return
	}

	requests := make([]crawler.HarvestRequest, 0, len(entries))
	for _, e := range entries {
		rc, err := coordinates.Parse(e.Coordinates)
		if err != nil {
			writeError(w, http.StatusBadRequest, "harvest entry coordinates did not parse", sharederrors.Detail{Message: err.Error()})
			return
		}
		requests = append(requests, crawler.HarvestRequest{
			Tool:        e.Tool,
			Coordinates: rc.EntityCoordinates,
			Policy:      e.Policy,
		})
	}

	accepted := make([]crawler.HarvestRequest, 0, len(requests))
	for _, req := range requests {
		if s.throttler.Allow(req) {
			accepted = append(accepted, req)
		}
	}
	if len(accepted) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "all harvest requests were throttled")
		return
	}

	if err := s.crawlerCli.Harvest(r.Context(), accepted); err != nil {
		if sharederrors.IsPermanent(err) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.log.Error(err, "unexpected error dispatching harvest request")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, accepted)
}

// harvestEntry is the wire shape of one POST /harvest array element: a
// coordinates string (spec §6.1), not the nested-object form
// crawler.HarvestRequest uses internally once coordinates are parsed.
type harvestEntry struct {
	Tool        string `json:"tool"`
	Coordinates string `json:"coordinates"`
	Policy      string `json:"policy,omitempty"`
}

// decodeJSONValue reads the body into an untyped value suitable for schema
// validation (kin-openapi's VisitJSON wants plain map/slice/string/etc).
func decodeJSONValue(r *http.Request) (any, error) {
	var v any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// remarshal round-trips an already-decoded JSON value into a typed target;
// cheaper than re-reading the request body a second time.
func remarshal(v any, target any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}
