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

package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/model"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, coordinates.ResultCoordinates) (model.Document, bool, error) {
	return nil, false, f.err
}
func (f failingStore) List(context.Context, coordinates.EntityCoordinates) ([]string, error) {
	return nil, f.err
}
func (f failingStore) Store(context.Context, coordinates.ResultCoordinates, model.Document) error {
	return f.err
}
func (f failingStore) Delete(context.Context, coordinates.ResultCoordinates) error { return f.err }
func (f failingStore) Find(context.Context, definitionstore.Query, string) (definitionstore.FindResult, error) {
	return definitionstore.FindResult{}, f.err
}

func testCoords() coordinates.ResultCoordinates {
	return coordinates.ResultCoordinates{EntityCoordinates: coordinates.EntityCoordinates{
		Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0",
	}}
}

func TestGetReturnsFirstNonAbsentResultAndSurvivesAFailingBackend(t *testing.T) {
	ctx := context.Background()
	rc := testCoords()

	good := definitionstore.NewMemoryStore()
	if err := good.Store(ctx, rc, model.Document{"licensed": model.Document{"declared": "MIT"}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	d := New(logr.Discard(), failingStore{err: errors.New("boom")}, definitionstore.NewMemoryStore(), good)

	def, ok, err := d.Get(ctx, rc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a present result from the backend that has it")
	}
	if def.GetString("licensed.declared") != "MIT" {
		t.Fatalf("got %v", def)
	}
}

func TestGetReturnsAbsentWhenEveryBackendIsAbsent(t *testing.T) {
	ctx := context.Background()
	d := New(logr.Discard(), definitionstore.NewMemoryStore(), definitionstore.NewMemoryStore())

	_, ok, err := d.Get(ctx, testCoords())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected absent")
	}
}

func TestStoreSucceedsWhenAtLeastOneBackendSucceeds(t *testing.T) {
	ctx := context.Background()
	rc := testCoords()

	ok := definitionstore.NewMemoryStore()
	d := New(logr.Discard(), failingStore{err: errors.New("boom")}, ok)

	if err := d.Store(ctx, rc, model.Document{"licensed": model.Document{"declared": "MIT"}}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	def, found, err := ok.Get(ctx, rc)
	if err != nil || !found {
		t.Fatalf("expected the write to have reached the surviving backend: found=%v err=%v", found, err)
	}
	if def.GetString("licensed.declared") != "MIT" {
		t.Fatalf("got %v", def)
	}
}

func TestStoreFailsWhenEveryBackendFails(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	d := New(logr.Discard(), failingStore{err: boom}, failingStore{err: boom})

	if err := d.Store(ctx, testCoords(), model.Document{}); err == nil {
		t.Fatal("expected an error when every backend fails")
	}
}
