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

// Package redisstore is a Redis-backed implementation of the abstract
// harveststore.Backend (C2) and definitionstore.Store (C3) contracts,
// another concrete store pkg/dispatch can fan reads and writes out to.
package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// harvestKeyPrefix namespaces harvest blobs within a shared Redis keyspace.
const harvestKeyPrefix = "catalogd:harvest:"

// HarvestBackend is a Redis-backed harveststore.Backend.
type HarvestBackend struct {
	client *redis.Client
}

// NewHarvestBackend wraps client.
func NewHarvestBackend(client *redis.Client) *HarvestBackend {
	return &HarvestBackend{client: client}
}

func (b *HarvestBackend) Put(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, harvestKeyPrefix+key, data, 0).Err()
}

func (b *HarvestBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, harvestKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *HarvestBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := scanKeys(ctx, b.client, harvestKeyPrefix+prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k[len(harvestKeyPrefix):]
	}
	return out, nil
}

// scanKeys walks the keyspace with SCAN rather than KEYS, so a large
// keyspace never blocks the server with a single O(N) command.
func scanKeys(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
