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

package definitionstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// pageSize bounds a single Find page, mirroring the service's paginated
// listing contract (spec §4.3).
const pageSize = 50

// MemoryStore is an in-process Store implementation, used directly for
// tests and as one fan-out target of pkg/dispatch.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Document
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]model.Document)}
}

func defKey(rc coordinates.ResultCoordinates) string {
	return rc.EntityCoordinates.Key()
}

func (m *MemoryStore) Get(_ context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.data[defKey(rc)]
	if !ok {
		return nil, false, nil
	}
	return def.Clone(), true, nil
}

func (m *MemoryStore) List(_ context.Context, prefix coordinates.EntityCoordinates) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := prefix.Key()
	out := make([]string, 0)
	for _, def := range m.data {
		coordStr, _ := def.Get("coordinates")
		s, _ := coordStr.(string)
		if s == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(s), want) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Store(_ context.Context, rc coordinates.ResultCoordinates, def model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := def.Clone()
	cp["coordinates"] = rc.EntityCoordinates.String()
	m.data[defKey(rc)] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, rc coordinates.ResultCoordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, defKey(rc))
	return nil
}

func (m *MemoryStore) Find(_ context.Context, query Query, continuationToken string) (FindResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]string, 0, len(m.data))
	for key, def := range m.data {
		ec, err := coordinates.Parse(key)
		if err != nil {
			continue
		}
		if query.Type != "" && !strings.EqualFold(ec.Type, query.Type) {
			continue
		}
		if query.Provider != "" && !strings.EqualFold(ec.Provider, query.Provider) {
			continue
		}
		if query.Name != "" && !strings.Contains(strings.ToLower(ec.Name), strings.ToLower(query.Name)) {
			continue
		}
		if s, _ := def.Get("coordinates"); s != nil {
			matches = append(matches, s.(string))
		}
	}
	sort.Strings(matches)

	start := 0
	if continuationToken != "" {
		if n, err := strconv.Atoi(continuationToken); err == nil {
			start = n
		}
	}
	if start > len(matches) {
		start = len(matches)
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}

	result := FindResult{Coordinates: matches[start:end]}
	if end < len(matches) {
		result.ContinuationToken = strconv.Itoa(end)
	}
	return result, nil
}
