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

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// docKeyPrefix/coordKeyPrefix namespace the definition document and its
// plain coordinate string (kept alongside so List/Find don't need to
// deserialize every document they scan past).
const (
	docKeyPrefix   = "catalogd:definition:doc:"
	coordKeyPrefix = "catalogd:definition:coord:"
)

// findPageSize mirrors definitionstore.MemoryStore's page size.
const findPageSize = 50

// DefinitionStore is a Redis-backed definitionstore.Store.
type DefinitionStore struct {
	client *redis.Client
}

// NewDefinitionStore wraps client.
func NewDefinitionStore(client *redis.Client) *DefinitionStore {
	return &DefinitionStore{client: client}
}

func (s *DefinitionStore) Get(ctx context.Context, rc coordinates.ResultCoordinates) (model.Document, bool, error) {
	raw, err := s.client.Get(ctx, docKeyPrefix+rc.EntityCoordinates.Key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *DefinitionStore) List(ctx context.Context, prefix coordinates.EntityCoordinates) ([]string, error) {
	keys, err := scanKeys(ctx, s.client, coordKeyPrefix+prefix.Key()+"*")
	if err != nil {
		return nil, err
	}
	return s.mgetCoords(ctx, keys)
}

func (s *DefinitionStore) mgetCoords(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *DefinitionStore) Store(ctx context.Context, rc coordinates.ResultCoordinates, def model.Document) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	key := rc.EntityCoordinates.Key()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, docKeyPrefix+key, raw, 0)
	pipe.Set(ctx, coordKeyPrefix+key, rc.EntityCoordinates.String(), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *DefinitionStore) Delete(ctx context.Context, rc coordinates.ResultCoordinates) error {
	key := rc.EntityCoordinates.Key()
	return s.client.Del(ctx, docKeyPrefix+key, coordKeyPrefix+key).Err()
}

func (s *DefinitionStore) Find(ctx context.Context, query definitionstore.Query, continuationToken string) (definitionstore.FindResult, error) {
	keys, err := scanKeys(ctx, s.client, coordKeyPrefix+"*")
	if err != nil {
		return definitionstore.FindResult{}, err
	}
	matches, err := s.mgetCoords(ctx, keys)
	if err != nil {
		return definitionstore.FindResult{}, err
	}

	filtered := make([]string, 0, len(matches))
	for _, c := range matches {
		ec, err := coordinates.Parse(c)
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
		filtered = append(filtered, c)
	}

	start := 0
	if continuationToken != "" {
		if n, err := strconv.Atoi(continuationToken); err == nil {
			start = n
		}
	}
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + findPageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	result := definitionstore.FindResult{Coordinates: filtered[start:end]}
	if end < len(filtered) {
		result.ContinuationToken = strconv.Itoa(end)
	}
	return result, nil
}
