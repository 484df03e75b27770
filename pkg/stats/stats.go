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

// Package stats computes per-stat-key median scores over the search index
// (spec §4.14, component C15): a closed enumeration of stat keys, each
// backed by a cached facet query and a cumulative-count median.
package stats

import (
	"context"
	"strconv"
	"sync"

	"github.com/clearlydefined/catalogd/pkg/searchindex"
)

// Keys is the closed stat-key enumeration spec §4.14 names.
var Keys = []string{
	"total", "crate", "gem", "git", "maven", "npm", "nuget", "pod",
	"composer", "pypi", "deb", "debsrc", "conda", "condasrc",
}

func validKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Stat is the computed result for one stat key.
type Stat struct {
	Key            string
	Count          int
	DescribedMedian int
	LicensedMedian  int
}

// Engine computes and caches Stat results over a searchindex.Index.
type Engine struct {
	index searchindex.Index

	mu    sync.Mutex
	cache map[string]Stat
}

// New builds an Engine over index.
func New(index searchindex.Index) *Engine {
	return &Engine{index: index, cache: make(map[string]Stat)}
}

// Get returns the cached Stat for key, computing it on a cache miss.
// ok is false for a key outside the closed enumeration.
func (e *Engine) Get(ctx context.Context, key string) (Stat, bool, error) {
	if !validKey(key) {
		return Stat{}, false, nil
	}

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return cached, true, nil
	}
	e.mu.Unlock()

	facets, err := e.index.Facets(ctx, key)
	if err != nil {
		return Stat{}, false, err
	}
	stat := Stat{
		Key:             key,
		Count:           facets.Count,
		DescribedMedian: getMedian(facets.DescribedScore, facets.Count),
		LicensedMedian:  getMedian(facets.LicensedScore, facets.Count),
	}

	e.mu.Lock()
	e.cache[key] = stat
	e.mu.Unlock()
	return stat, true, nil
}

// Invalidate drops every cached Stat, forcing the next Get to recompute.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]Stat)
}

// getMedian returns the value of the bucket where the cumulative count
// first reaches or exceeds total/2 (spec §4.14's `_getMedian`), or 0 when
// total is 0. Buckets are assumed sorted ascending by numeric value
// (searchindex.MemoryIndex.Facets already returns them that way).
func getMedian(buckets []searchindex.Bucket, total int) int {
	if total == 0 {
		return 0
	}
	half := total / 2
	cumulative := 0
	for _, b := range buckets {
		cumulative += b.Count
		if cumulative >= half {
			v, _ := strconv.Atoi(b.Value)
			return v
		}
	}
	if len(buckets) == 0 {
		return 0
	}
	last, _ := strconv.Atoi(buckets[len(buckets)-1].Value)
	return last
}
