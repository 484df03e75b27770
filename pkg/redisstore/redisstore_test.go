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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestHarvestBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewHarvestBackend(newTestClient(t))

	if err := backend.Put(ctx, "npm/npmjs/-/left-pad/1.0.0/scancode/3.2.2", []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	data, ok, err := backend.Get(ctx, "npm/npmjs/-/left-pad/1.0.0/scancode/3.2.2")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(data) != `{"ok":true}` {
		t.Fatalf("Get() = %q, %v", data, ok)
	}
}

func TestHarvestBackendGetMissing(t *testing.T) {
	backend := NewHarvestBackend(newTestClient(t))
	_, ok, err := backend.Get(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestHarvestBackendListByPrefix(t *testing.T) {
	ctx := context.Background()
	backend := NewHarvestBackend(newTestClient(t))
	if err := backend.Put(ctx, "npm/npmjs/-/left-pad/1.0.0/scancode/3.2.2", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := backend.Put(ctx, "npm/npmjs/-/left-pad/1.0.0/licensee/9.0", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := backend.Put(ctx, "npm/npmjs/-/other/1.0.0/scancode/3.2.2", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	out, err := backend.List(ctx, "npm/npmjs/-/left-pad/1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(out), out)
	}
}

func testRC() coordinates.ResultCoordinates {
	return coordinates.ResultCoordinates{
		EntityCoordinates: coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0"},
	}
}

func TestDefinitionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDefinitionStore(newTestClient(t))
	rc := testRC()

	if err := store.Store(ctx, rc, model.Document{"licensed": model.Document{"declared": "MIT"}}); err != nil {
		t.Fatal(err)
	}
	def, ok, err := store.Get(ctx, rc)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || def.GetString("licensed.declared") != "MIT" {
		t.Fatalf("Get() = %+v, %v", def, ok)
	}
}

func TestDefinitionStoreDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	store := NewDefinitionStore(newTestClient(t))
	rc := testRC()

	if err := store.Store(ctx, rc, model.Document{"licensed": model.Document{"declared": "MIT"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, rc); err != nil {
		t.Fatal(err)
	}
	_, ok, err := store.Get(ctx, rc)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected deletion to remove the definition")
	}
}

func TestDefinitionStoreFindFiltersByName(t *testing.T) {
	ctx := context.Background()
	store := NewDefinitionStore(newTestClient(t))
	if err := store.Store(ctx, testRC(), model.Document{}); err != nil {
		t.Fatal(err)
	}
	other := testRC()
	other.Name = "other"
	if err := store.Store(ctx, other, model.Document{}); err != nil {
		t.Fatal(err)
	}

	result, err := store.Find(ctx, definitionstore.Query{Name: "left-pad"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Coordinates) != 1 {
		t.Fatalf("expected 1 match, got %d: %v", len(result.Coordinates), result.Coordinates)
	}
}
