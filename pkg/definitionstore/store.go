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

// Package definitionstore defines the abstract definition-store contract
// (spec §4.3, component C3): get, list, store, delete, and a paginated
// find. Concrete backends (memory, Postgres — pkg/pgstore) implement Store;
// pkg/dispatch fans writes/reads out across several of them.
package definitionstore

import (
	"context"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// Query filters Find by facet; zero values are unconstrained.
type Query struct {
	Type     string
	Provider string
	Name     string
	Sort     string
}

// FindResult is one page of Find results.
type FindResult struct {
	Coordinates        []string
	ContinuationToken  string
}

// Store is the abstract definition store contract.
type Store interface {
	// Get returns the stored definition for rc, or ok=false when absent.
	Get(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error)
	// List returns the canonical coordinate strings stored under prefix.
	List(ctx context.Context, prefix coordinates.EntityCoordinates) ([]string, error)
	// Store persists def at rc, overwriting any prior value.
	Store(ctx context.Context, rc coordinates.ResultCoordinates, def model.Document) error
	// Delete removes the stored definition at rc, if any.
	Delete(ctx context.Context, rc coordinates.ResultCoordinates) error
	// Find returns a page of coordinates matching query.
	Find(ctx context.Context, query Query, continuationToken string) (FindResult, error)
}
