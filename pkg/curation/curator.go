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

package curation

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// AffectedRevision is one (coordinates, revision) pair a merged
// contribution requires the definition service to invalidate and
// recompute (spec §4.7).
type AffectedRevision struct {
	Coordinates coordinates.EntityCoordinates
	Revision    string
}

// Curator reads, proposes and merges curation patches (spec §4.7,
// component C8). It never calls back into the definition service directly
// — Merge returns the affected revisions and the caller (pkg/webhook's
// GitHubHandler) passes them to pkg/definition's Invalidate, avoiding a
// curation<->definition import cycle.
type Curator struct {
	repo Repository
	log  logr.Logger

	mu            sync.Mutex
	contributions map[int]*Contribution
}

// New builds a Curator over repo.
func New(repo Repository, log logr.Logger) *Curator {
	return &Curator{
		repo:          repo,
		log:           log.WithName("curator"),
		contributions: make(map[int]*Contribution),
	}
}

// Current returns the merged curation for coords, or an empty Curation
// when none has been recorded yet.
func (c *Curator) Current(ctx context.Context, coords coordinates.EntityCoordinates) (Curation, error) {
	raw, ok, err := c.repo.ReadCurationFile(ctx, Path(coords))
	if err != nil {
		return Curation{}, err
	}
	if !ok {
		return Curation{}, nil
	}
	return Validate(ctx, raw)
}

// ForPR returns the PR-scoped curation for coords instead of the merged
// one, per the "pr" query parameter described in spec §6.1.
func (c *Curator) ForPR(ctx context.Context, coords coordinates.EntityCoordinates, pr int) (Curation, error) {
	c.mu.Lock()
	contribution, ok := c.contributions[pr]
	c.mu.Unlock()
	if !ok {
		return Curation{}, nil
	}
	cur, ok := contribution.Patches[Path(coords)]
	if !ok {
		return Curation{}, nil
	}
	return cur, nil
}

// Apply deep-merges patch over definition, the curation winning on scalar
// conflicts and matching file-level curations by path (spec §4.7) — the
// same rules model.DeepMerge already applies with src (here, the patch)
// winning.
func Apply(definition, patch model.Document) model.Document {
	return model.DeepMerge(definition.Clone(), patch)
}

// OpenOrUpdate handles a PR open/update/synchronize event: it fetches the
// PR's curation files, validates each, and replaces the in-memory
// contribution for pr.
func (c *Curator) OpenOrUpdate(ctx context.Context, pr int, headCommit string) error {
	files, err := c.repo.FetchPRFiles(ctx, pr, headCommit)
	if err != nil {
		return err
	}

	patches := make(map[string]Curation, len(files))
	for path, raw := range files {
		cur, err := Validate(ctx, raw)
		if err != nil {
			c.log.Error(err, "dropping invalid curation patch from contribution", "pr", pr, "path", path)
			continue
		}
		patches[path] = cur
	}

	c.mu.Lock()
	c.contributions[pr] = &Contribution{PR: pr, HeadCommit: headCommit, Patches: patches}
	c.mu.Unlock()
	return nil
}

// Merge retires pr's contribution: every patch it proposes is written
// through to the curation store, and the (coordinates, revision) pairs it
// touches are returned for the caller to invalidate and recompute.
func (c *Curator) Merge(ctx context.Context, pr int) ([]AffectedRevision, error) {
	c.mu.Lock()
	contribution, ok := c.contributions[pr]
	delete(c.contributions, pr)
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var affected []AffectedRevision
	for path, cur := range contribution.Patches {
		raw, err := toYAML(cur)
		if err != nil {
			return affected, err
		}
		if err := c.repo.WriteCurationFile(ctx, path, raw); err != nil {
			return affected, err
		}
		coords := coordinates.EntityCoordinates{
			Type:      cur.Coordinates.Type,
			Provider:  cur.Coordinates.Provider,
			Namespace: cur.Coordinates.Namespace,
			Name:      cur.Coordinates.Name,
		}
		for revision := range cur.Revisions {
			affected = append(affected, AffectedRevision{Coordinates: coords, Revision: revision})
		}
	}
	return affected, nil
}
