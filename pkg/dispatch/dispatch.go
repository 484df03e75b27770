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

// Package dispatch fans a definitionstore.Store call out across an ordered
// sequence of backing stores (spec §4.3, component C4): reads race and the
// first non-absent result wins, writes run concurrently and wait for every
// backend, succeeding as long as one of them does.
package dispatch

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// Store fans out to an ordered sequence of backing stores. It implements
// definitionstore.Store so it is a drop-in replacement for a single store.
type Store struct {
	backends []definitionstore.Store
	log      logr.Logger
}

// New builds a Store dispatching across backends, in the given order. The
// order only matters for Get/List/Find's deterministic behavior when more
// than one backend returns a non-absent result for the same query.
func New(log logr.Logger, backends ...definitionstore.Store) *Store {
	return &Store{backends: backends, log: log.WithName("dispatch")}
}

// Get runs Get on every backend concurrently and returns the first
// non-absent result; a failing backend is logged and treated as absent.
func (s *Store) Get(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error) {
	type result struct {
		def model.Document
		ok  bool
	}
	results := make([]result, len(s.backends))

	var wg sync.WaitGroup
	for i, backend := range s.backends {
		wg.Add(1)
		go func(i int, backend definitionstore.Store) {
			defer wg.Done()
			def, ok, err := backend.Get(ctx, rc)
			if err != nil {
				s.log.Error(err, "get failed on backend, treating as absent", "index", i, "coordinates", rc.String())
				return
			}
			results[i] = result{def: def, ok: ok}
		}(i, backend)
	}
	wg.Wait()

	for _, r := range results {
		if r.ok {
			return r.def, true, nil
		}
	}
	return nil, false, nil
}

// List runs List on every backend concurrently and returns the first
// non-empty result; a failing backend is logged and treated as absent.
func (s *Store) List(ctx context.Context, prefix coordinates.EntityCoordinates) ([]string, error) {
	results := make([][]string, len(s.backends))

	var wg sync.WaitGroup
	for i, backend := range s.backends {
		wg.Add(1)
		go func(i int, backend definitionstore.Store) {
			defer wg.Done()
			list, err := backend.List(ctx, prefix)
			if err != nil {
				s.log.Error(err, "list failed on backend, treating as absent", "index", i, "prefix", prefix.String())
				return
			}
			results[i] = list
		}(i, backend)
	}
	wg.Wait()

	for _, r := range results {
		if len(r) > 0 {
			return r, nil
		}
	}
	return nil, nil
}

// Find runs Find on every backend concurrently and returns the first page
// with at least one coordinate; a failing backend is logged and treated as
// absent.
func (s *Store) Find(ctx context.Context, query definitionstore.Query, continuationToken string) (definitionstore.FindResult, error) {
	results := make([]definitionstore.FindResult, len(s.backends))

	var wg sync.WaitGroup
	for i, backend := range s.backends {
		wg.Add(1)
		go func(i int, backend definitionstore.Store) {
			defer wg.Done()
			res, err := backend.Find(ctx, query, continuationToken)
			if err != nil {
				s.log.Error(err, "find failed on backend, treating as absent", "index", i)
				return
			}
			results[i] = res
		}(i, backend)
	}
	wg.Wait()

	for _, r := range results {
		if len(r.Coordinates) > 0 {
			return r, nil
		}
	}
	return definitionstore.FindResult{}, nil
}

// Store writes def to every backend concurrently, waiting for all of them;
// it succeeds as long as at least one backend's write succeeds (spec §4.3:
// "the first successful result is returned").
func (s *Store) Store(ctx context.Context, rc coordinates.ResultCoordinates, def model.Document) error {
	return s.writeToAll(ctx, func(backend definitionstore.Store) error {
		return backend.Store(ctx, rc, def)
	})
}

// Delete removes rc from every backend concurrently, waiting for all of
// them, with the same success policy as Store.
func (s *Store) Delete(ctx context.Context, rc coordinates.ResultCoordinates) error {
	return s.writeToAll(ctx, func(backend definitionstore.Store) error {
		return backend.Delete(ctx, rc)
	})
}

func (s *Store) writeToAll(ctx context.Context, write func(definitionstore.Store) error) error {
	g, _ := errgroup.WithContext(ctx)
	errs := make([]error, len(s.backends))
	for i, backend := range s.backends {
		i, backend := i, backend
		g.Go(func() error {
			errs[i] = write(backend)
			return nil
		})
	}
	_ = g.Wait()

	var firstErr error
	for _, err := range errs {
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
