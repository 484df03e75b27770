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

// Package suggestion answers "what declared license would this coordinate
// likely have" by looking at peer revisions (spec §4.13, component C14):
// given a coordinate missing a declared license, every other revision of
// the same (type, provider, namespace, name) that has one contributes a
// suggestion, oldest release first.
package suggestion

import (
	"context"
	"sort"
	"strings"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
)

const noAssertion = "NOASSERTION"

// Candidate is one peer revision's declared license.
type Candidate struct {
	Value   string
	Version string
}

// Result is the suggestion response shape for a coordinate (spec §4.13).
type Result struct {
	Coordinates     coordinates.EntityCoordinates
	LicensedDeclared []Candidate
}

// Engine computes suggestions directly off a definitionstore.Store; it
// needs no abstraction beyond that contract since a suggestion is exactly a
// peer-revision read (component C3).
type Engine struct {
	store definitionstore.Store
}

// New builds an Engine over store.
func New(store definitionstore.Store) *Engine {
	return &Engine{store: store}
}

// Suggest returns peer-revision declared-license candidates for coords, or
// ok=false when coords' own declared license is already usable or no peer
// has a usable one.
func (e *Engine) Suggest(ctx context.Context, coords coordinates.EntityCoordinates) (Result, bool, error) {
	rc := coordinates.ResultCoordinates{EntityCoordinates: coords}
	self, ok, err := e.store.Get(ctx, rc)
	if err != nil {
		return Result{}, false, err
	}
	if ok && usableDeclared(self.GetString("licensed.declared")) {
		return Result{}, false, nil
	}

	peers, err := e.store.List(ctx, withoutRevision(coords))
	if err != nil {
		return Result{}, false, err
	}

	type candidate struct {
		Candidate
		releaseDate string
	}
	var found []candidate
	for _, peer := range peers {
		peerRC, err := coordinates.Parse(peer)
		if err != nil || peerRC.Revision == coords.Revision {
			continue
		}
		// List matches by prefix, so "left-pad" also lists "left-pad2".
		if !strings.EqualFold(peerRC.StringWithoutRevision(), coords.StringWithoutRevision()) {
			continue
		}
		def, ok, err := e.store.Get(ctx, peerRC)
		if err != nil || !ok {
			continue
		}
		declared := def.GetString("licensed.declared")
		if !usableDeclared(declared) {
			continue
		}
		found = append(found, candidate{
			Candidate:   Candidate{Value: declared, Version: peerRC.Revision},
			releaseDate: def.GetString("described.releaseDate"),
		})
	}
	if len(found) == 0 {
		return Result{}, false, nil
	}

	sort.Slice(found, func(i, j int) bool { return found[i].releaseDate < found[j].releaseDate })

	out := make([]Candidate, len(found))
	for i, c := range found {
		out[i] = c.Candidate
	}
	return Result{Coordinates: coords, LicensedDeclared: out}, true, nil
}

func usableDeclared(v string) bool {
	return v != "" && v != noAssertion
}

func withoutRevision(coords coordinates.EntityCoordinates) coordinates.EntityCoordinates {
	coords.Revision = ""
	return coords
}
