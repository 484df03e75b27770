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

// Package searchindex is the "search" collaborator the definition service
// keeps in lockstep with the definition store (spec §4.9 state list): every
// stored definition is also indexed here, keyed by coordinates, so the
// stats engine (C15) can run facet queries without scanning the definition
// store itself. Spec §5 calls this out by name as shared mutable
// in-process state ("the memory search index").
package searchindex

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/scoring"
)

// Bucket is one facet value and how many indexed definitions carry it.
type Bucket struct {
	Value string
	Count int
}

// FacetResult is the result of one facet query (spec §4.14: "count and
// three facets: describedScore, licensedScore, declaredLicense").
type FacetResult struct {
	Count           int
	DescribedScore  []Bucket
	LicensedScore   []Bucket
	DeclaredLicense []Bucket
}

// Index is the abstract search-index contract the definition service
// writes through to and the stats engine reads from.
type Index interface {
	Store(ctx context.Context, coords coordinates.EntityCoordinates, def model.Document) error
	Delete(ctx context.Context, coords coordinates.EntityCoordinates) error
	Facets(ctx context.Context, statKey string) (FacetResult, error)
}

type entry struct {
	componentType string
	describedScore int
	licensedScore  int
	declared       string
}

// MemoryIndex is the in-process Index (spec §5's "memory search index").
type MemoryIndex struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewMemoryIndex builds an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{data: make(map[string]entry)}
}

func (idx *MemoryIndex) Store(_ context.Context, coords coordinates.EntityCoordinates, def model.Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.data[coords.Key()] = entry{
		componentType:  strings.ToLower(coords.Type),
		describedScore: scoreOf(def, "described.score"),
		licensedScore:  scoreOf(def, "licensed.score"),
		declared:       def.GetString("licensed.declared"),
	}
	return nil
}

func (idx *MemoryIndex) Delete(_ context.Context, coords coordinates.EntityCoordinates) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.data, coords.Key())
	return nil
}

// Facets computes the facet result for statKey ("total" matches every
// indexed entry; any other key matches entries whose component type
// equals it, per the closed enumeration in spec §4.14).
func (idx *MemoryIndex) Facets(_ context.Context, statKey string) (FacetResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	described := map[int]int{}
	licensed := map[int]int{}
	declared := map[string]int{}
	count := 0
	for _, e := range idx.data {
		if statKey != "total" && e.componentType != strings.ToLower(statKey) {
			continue
		}
		count++
		described[e.describedScore]++
		licensed[e.licensedScore]++
		if e.declared != "" {
			declared[e.declared]++
		}
	}

	return FacetResult{
		Count:           count,
		DescribedScore:  bucketsFromIntCounts(described),
		LicensedScore:   bucketsFromIntCounts(licensed),
		DeclaredLicense: bucketsFromStringCounts(declared),
	}, nil
}

func scoreOf(def model.Document, path string) int {
	v, ok := def.Get(path)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case scoring.Score:
		return n.Total
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func bucketsFromIntCounts(counts map[int]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for v, c := range counts {
		out = append(out, Bucket{Value: strconv.Itoa(v), Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, _ := strconv.Atoi(out[i].Value)
		vj, _ := strconv.Atoi(out[j].Value)
		return vi < vj
	})
	return out
}

func bucketsFromStringCounts(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for v, c := range counts {
		out = append(out, Bucket{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
