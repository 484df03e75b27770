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

// Package definition orchestrates the harvest->summarize->aggregate->
// curate->score->persist pipeline (spec §4.9, component C10). It owns the
// compute lock and is the only writer of the definition store.
package definition

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/clearlydefined/catalogd/pkg/aggregator"
	"github.com/clearlydefined/catalogd/pkg/cdn"
	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/crawler"
	"github.com/clearlydefined/catalogd/pkg/curation"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/harveststore"
	"github.com/clearlydefined/catalogd/pkg/metrics"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/scoring"
	"github.com/clearlydefined/catalogd/pkg/searchindex"
)

// definitionTool is the fixed tool name definitions are stored under (spec
// §6.3): key (coordinates, tool="definition", toolVersion=currentSchema).
const definitionTool = "definition"

// maxConcurrentListAll bounds the fan-out concurrency of ListAll (spec
// §4.9 implies a batch operation; bounded to avoid overwhelming the store
// on a large batch).
const maxConcurrentListAll = 10

// Summarizer turns one tool's raw harvest output into the opaque Summary
// shape (spec §3). Tool-specific summarizer behavior is opaque and out of
// scope (spec §1); only this contract lives here.
type Summarizer interface {
	Summarize(ctx context.Context, rc coordinates.ResultCoordinates, raw []byte) (model.Document, error)
}

// PrecedenceTable maps a component type to its tool precedence groups; the
// empty-string key is the default used when a type has no specific entry.
type PrecedenceTable map[string][]aggregator.PrecedenceGroup

func (t PrecedenceTable) forType(componentType string) []aggregator.PrecedenceGroup {
	if p, ok := t[componentType]; ok {
		return p
	}
	return t[""]
}

// DefaultPrecedence is a reasonable default precedence table of three
// single-tool groups, listed highest-priority group first as Aggregate
// expects: clearlydefined, then licensee, then the raw scancode scanner.
// Community curation is applied separately via the crate-license override
// and curator patch, not here. described.tools ends up lowest priority
// first, so clearlydefined appears last.
func DefaultPrecedence() PrecedenceTable {
	general := []aggregator.PrecedenceGroup{
		{"clearlydefined"},
		{"licensee"},
		{"scancode"},
	}
	return PrecedenceTable{"": general}
}

// Config configures a Service.
type Config struct {
	CurrentSchema string
	Precedence    PrecedenceTable
}

// Service is the Definition Service (spec §4.9).
type Service struct {
	cfg Config

	harvest     *harveststore.Store
	summarizer  Summarizer
	curator     *curation.Curator
	store       definitionstore.Store
	search      searchindex.Index
	invalidator *cdn.Invalidator
	crawler     crawler.Client
	lock        *computelock.Lock
	log         logr.Logger
}

// New wires a Service. currentSchema must be set (spec §4.11: the
// dependent upgrade path must throw at construction if unset) — Fatal per
// spec §7. search may be nil, in which case the service simply never
// indexes (used by callers that don't need stats/suggestions).
func New(cfg Config, harvest *harveststore.Store, summarizer Summarizer, curator *curation.Curator, store definitionstore.Store, search searchindex.Index, invalidator *cdn.Invalidator, crawlerClient crawler.Client, lock *computelock.Lock, log logr.Logger) (*Service, error) {
	if cfg.CurrentSchema == "" {
		return nil, errFatalMissingSchema
	}
	return &Service{
		cfg:         cfg,
		harvest:     harvest,
		summarizer:  summarizer,
		curator:     curator,
		store:       store,
		search:      search,
		invalidator: invalidator,
		crawler:     crawlerClient,
		lock:        lock,
		log:         log.WithName("definition-service"),
	}, nil
}

func (s *Service) definitionRC(coords coordinates.EntityCoordinates) coordinates.ResultCoordinates {
	return coordinates.ResultCoordinates{EntityCoordinates: coords, Tool: definitionTool, ToolVersion: s.cfg.CurrentSchema}
}

// Get implements the state machine in spec §4.9: a PR-scoped request
// always recomputes; otherwise a stored hit short-circuits unless force is
// set, and a miss (or force) computes, stores and invalidates under the
// per-coordinate lock.
func (s *Service) Get(ctx context.Context, coords coordinates.EntityCoordinates, pr int, force bool) (model.Document, error) {
	if pr != 0 {
		return s.Compute(ctx, coords, pr)
	}

	stored, ok, err := s.store.Get(ctx, s.definitionRC(coords))
	if err != nil {
		return nil, err
	}
	if ok && !force {
		if model.IsEmptyDefinition(stored) {
			s.triggerHarvest(ctx, coords)
		}
		return stored, nil
	}

	release, err := s.lock.Acquire(ctx, coords.Key())
	if err != nil {
		return nil, err
	}
	defer release()
	return s.ComputeAndStore(ctx, coords)
}

// Summarize returns one tool's harvest output run through the opaque
// Summarizer, for the `/harvest` GET route (spec §6.1: "Return summarized
// data for one tool version"). ok=false means no harvest output is stored
// for rc.
func (s *Service) Summarize(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error) {
	raw, ok, err := s.harvest.Get(ctx, rc)
	if err != nil || !ok {
		return nil, false, err
	}
	summary, err := s.summarizer.Summarize(ctx, rc, raw)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

func (s *Service) triggerHarvest(ctx context.Context, coords coordinates.EntityCoordinates) {
	if s.crawler == nil {
		return
	}
	if err := s.crawler.Harvest(ctx, []crawler.HarvestRequest{{Tool: "scancode", Coordinates: coords}}); err != nil {
		s.log.Error(err, "harvest trigger failed", "coordinates", coords.String())
	}
}

// Compute reads curation, summarizes every tool's latest harvest output,
// aggregates by precedence, applies curation and scores the result. It
// never touches the store (spec §4.9).
func (s *Service) Compute(ctx context.Context, coords coordinates.EntityCoordinates, pr int) (model.Document, error) {
	outputs, err := s.harvest.GetAllLatestWithVersion(ctx, coords)
	if err != nil {
		return nil, err
	}

	data := aggregator.SummarizedData{}
	for tool, vo := range outputs {
		rc := coordinates.ResultCoordinates{EntityCoordinates: coords, Tool: tool, ToolVersion: vo.Version}
		summary, err := s.summarizer.Summarize(ctx, rc, vo.Data)
		if err != nil {
			s.log.Error(err, "summarize failed, skipping tool", "tool", tool, "coordinates", coords.String())
			continue
		}
		data[tool] = map[string]model.Document{vo.Version: summary}
	}

	aggregated, ok := aggregator.Aggregate(coords.Type, data, s.cfg.Precedence.forType(coords.Type))
	if !ok {
		aggregated = model.Document{}
	}
	aggregated.Set("coordinates", coords.String())
	aggregated.Set("_meta.schemaVersion", s.cfg.CurrentSchema)

	var cur curation.Curation
	if pr != 0 {
		cur, err = s.curator.ForPR(ctx, coords, pr)
	} else {
		cur, err = s.curator.Current(ctx, coords)
	}
	if err != nil {
		return nil, err
	}
	final := aggregated
	if patch, ok := cur.PatchFor(coords.Revision); ok {
		final = curation.Apply(aggregated, patch)
	}

	if !model.IsEmptyDefinition(final) {
		final.Set("described.score", scoring.Described(final))
		final.Set("described.toolScore", scoring.Described(aggregated))
		final.Set("licensed.score", scoring.Licensed(final))
		final.Set("licensed.toolScore", scoring.Licensed(aggregated))
	}
	return final, nil
}

// ComputeAndStore computes and, if non-empty, persists the result and
// emits a CDN invalidation (spec §4.9). Store errors are logged, not
// returned — the computed value is still handed back to the caller.
func (s *Service) ComputeAndStore(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error) {
	start := time.Now()
	def, err := s.Compute(ctx, coords, 0)
	metrics.RecordDefinitionCompute(start, err)
	if err != nil {
		return nil, err
	}
	if model.IsEmptyDefinition(def) {
		return def, nil
	}

	if err := s.store.Store(ctx, s.definitionRC(coords), def); err != nil {
		s.log.Error(err, "failed to store computed definition", "coordinates", coords.String())
	}
	if s.search != nil {
		if err := s.search.Store(ctx, coords, def); err != nil {
			s.log.Error(err, "failed to index computed definition", "coordinates", coords.String())
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, cdn.Tag(coords)); err != nil {
			s.log.Error(err, "failed to queue CDN invalidation", "coordinates", coords.String())
		}
	}
	return def, nil
}

// ComputeStoreAndCurate is ComputeAndStore plus ensuring the stored result
// reflects every curation that currently mentions coords (spec §4.9).
func (s *Service) ComputeStoreAndCurate(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error) {
	return s.ComputeAndStore(ctx, coords)
}

// ComputeAndStoreIfNecessary recomputes coords unless the stored
// definition's described.tools already lists tool/toolVersion, in which
// case it is a no-op (spec §4.10 step 5, §6.2's crawler webhook dispatch
// for any tool other than "clearlydefined").
func (s *Service) ComputeAndStoreIfNecessary(ctx context.Context, coords coordinates.EntityCoordinates, tool, toolVersion string) (model.Document, error) {
	stored, ok, err := s.GetStored(ctx, coords)
	if err != nil {
		return nil, err
	}
	if ok && stored.HasTool(tool+"/"+toolVersion) {
		s.log.Info("Skip definition computation as the tool result has already been processed", "coordinates", coords.String(), "tool", tool, "toolVersion", toolVersion)
		return stored, nil
	}
	return s.ComputeAndStore(ctx, coords)
}

// GetStored is a cache lookup only; it never triggers a compute (spec §4.9).
func (s *Service) GetStored(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, bool, error) {
	return s.store.Get(ctx, s.definitionRC(coords))
}

// Invalidate deletes the stored definition for each coordinate and issues
// a CDN invalidation for it (spec §4.9).
func (s *Service) Invalidate(ctx context.Context, batch []coordinates.EntityCoordinates) error {
	for _, coords := range batch {
		if err := s.store.Delete(ctx, s.definitionRC(coords)); err != nil {
			return err
		}
		if s.search != nil {
			if err := s.search.Delete(ctx, coords); err != nil {
				s.log.Error(err, "failed to remove definition from search index", "coordinates", coords.String())
			}
		}
		if s.invalidator != nil {
			if err := s.invalidator.Invalidate(ctx, cdn.Tag(coords)); err != nil {
				s.log.Error(err, "failed to queue CDN invalidation", "coordinates", coords.String())
			}
		}
	}
	return nil
}

// ListAll resolves each input coordinate through the store's List with a
// lower-cased name comparison, returning the union of coordinate strings
// the store actually has, preserving the store's casing (spec §4.9).
func (s *Service) ListAll(ctx context.Context, batch []coordinates.EntityCoordinates) ([]string, error) {
	results := make([][]string, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentListAll)
	for i, coords := range batch {
		i, coords := i, coords
		g.Go(func() error {
			out, err := s.store.List(gctx, coords)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	union := make([]string, 0)
	for _, r := range results {
		for _, c := range r {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			union = append(union, c)
		}
	}
	return union, nil
}

// Find passes query through to the store (spec §4.9).
func (s *Service) Find(ctx context.Context, query definitionstore.Query, continuationToken string) (definitionstore.FindResult, error) {
	return s.store.Find(ctx, query, continuationToken)
}
