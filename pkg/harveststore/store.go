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

// Package harveststore persists and enumerates raw tool outputs keyed by
// coordinates+tool+version (spec §4.2, component C2).
package harveststore

import (
	"context"
	"io"
	"sort"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/semver"
)

// Backend is the minimal byte-blob contract a concrete harvest backend
// (memory, Redis, blob storage, ...) must satisfy. Store is built on top of
// it so every backend gets list/getAll/getAllLatest/stream for free.
type Backend interface {
	// Put stores raw tool output at key.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the raw tool output at key, or ok=false when absent.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// List returns every key with the given prefix. A missing prefix
	// returns an empty, non-error result (spec §4.2 failure mode).
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is the abstract harvest store contract (spec §4.2).
type Store struct {
	backend Backend
}

// New builds a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func key(rc coordinates.ResultCoordinates) string {
	return rc.String()
}

// Put writes raw tool output for rc.
func (s *Store) Put(ctx context.Context, rc coordinates.ResultCoordinates, data []byte) error {
	return s.backend.Put(ctx, key(rc), data)
}

// List returns the deduplicated, sorted canonical ResultCoordinates strings
// under coordinatesPrefix.
func (s *Store) List(ctx context.Context, prefix coordinates.EntityCoordinates) ([]string, error) {
	keys, err := s.backend.List(ctx, prefix.String())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Get returns the raw tool output for rc, or ok=false when absent.
func (s *Store) Get(ctx context.Context, rc coordinates.ResultCoordinates) ([]byte, bool, error) {
	return s.backend.Get(ctx, key(rc))
}

// GetAll returns every tool/version entry under coordinates as
// tool -> toolVersion -> rawOutput.
func (s *Store) GetAll(ctx context.Context, coords coordinates.EntityCoordinates) (map[string]map[string][]byte, error) {
	entries, err := s.List(ctx, coords)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string][]byte)
	for _, entry := range entries {
		rc, err := coordinates.Parse(entry)
		if err != nil || rc.Tool == "" {
			continue
		}
		data, ok, err := s.Get(ctx, rc)
		if err != nil || !ok {
			continue
		}
		if out[rc.Tool] == nil {
			out[rc.Tool] = make(map[string][]byte)
		}
		out[rc.Tool][rc.ToolVersion] = data
	}
	return out, nil
}

// GetAllLatest is like GetAll but retains only the highest semantic version
// per tool (ties broken lexicographically descending, per spec §4.2).
func (s *Store) GetAllLatest(ctx context.Context, coords coordinates.EntityCoordinates) (map[string][]byte, error) {
	all, err := s.GetAll(ctx, coords)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(all))
	for tool, versions := range all {
		versionList := make([]string, 0, len(versions))
		for v := range versions {
			versionList = append(versionList, v)
		}
		latest := semver.Highest(versionList)
		out[tool] = versions[latest]
	}
	return out, nil
}

// VersionedOutput pairs a tool's selected version with its raw output.
type VersionedOutput struct {
	Version string
	Data    []byte
}

// GetAllLatestWithVersion is like GetAllLatest but retains the selected
// tool version alongside the raw output, for callers (the aggregator) that
// need to record which version contributed.
func (s *Store) GetAllLatestWithVersion(ctx context.Context, coords coordinates.EntityCoordinates) (map[string]VersionedOutput, error) {
	all, err := s.GetAll(ctx, coords)
	if err != nil {
		return nil, err
	}

	out := make(map[string]VersionedOutput, len(all))
	for tool, versions := range all {
		versionList := make([]string, 0, len(versions))
		for v := range versions {
			versionList = append(versionList, v)
		}
		latest := semver.Highest(versionList)
		out[tool] = VersionedOutput{Version: latest, Data: versions[latest]}
	}
	return out, nil
}

// Stream copies the raw output for rc to sink.
func (s *Store) Stream(ctx context.Context, rc coordinates.ResultCoordinates, sink io.Writer) error {
	data, ok, err := s.Get(ctx, rc)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, err = sink.Write(data)
	return err
}
