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

package upgradeprocessor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/queue"
)

func TestNewVersionCheckerRejectsMissingSchema(t *testing.T) {
	if _, err := NewVersionChecker(""); err == nil {
		t.Fatal("expected an error for an empty current schema")
	}
}

func TestVersionCheckerCheck(t *testing.T) {
	checker, err := NewVersionChecker("2.0.0")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		def  model.Document
		want bool
	}{
		{"empty definition is stale", model.Document{}, false},
		{"older schema is stale", model.Document{"described": model.Document{"tools": []any{"x/1"}}, "_meta": model.Document{"schemaVersion": "1.0.0"}}, false},
		{"equal schema is current", model.Document{"described": model.Document{"tools": []any{"x/1"}}, "_meta": model.Document{"schemaVersion": "2.0.0"}}, true},
		{"newer schema is current", model.Document{"described": model.Document{"tools": []any{"x/1"}}, "_meta": model.Document{"schemaVersion": "3.0.0"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := checker.Check(tc.def); got != tc.want {
				t.Errorf("Check() = %v, want %v", got, tc.want)
			}
		})
	}
}

type fakeService struct {
	mu                    sync.Mutex
	stored                map[string]model.Document
	computeStoreAndCurate []string
}

func (f *fakeService) GetStored(_ context.Context, coords coordinates.EntityCoordinates) (model.Document, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.stored[coords.Key()]
	return d, ok, nil
}

func (f *fakeService) ComputeStoreAndCurate(_ context.Context, coords coordinates.EntityCoordinates) (model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computeStoreAndCurate = append(f.computeStoreAndCurate, coords.Key())
	return model.Document{}, nil
}

func TestProcessorSkipsWhenStillCurrent(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(0)
	coords := coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0"}
	if err := EnqueueStale(ctx, q, coords, nil); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{stored: map[string]model.Document{
		coords.Key(): {"described": model.Document{"tools": []any{"x/1"}}, "_meta": model.Document{"schemaVersion": "2.0.0"}},
	}}
	checker, err := NewVersionChecker("2.0.0")
	if err != nil {
		t.Fatal(err)
	}

	p := New(q, computelock.New(time.Minute), svc, checker, logr.Discard(), true)
	if err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(svc.computeStoreAndCurate) != 0 {
		t.Errorf("expected no recompute, got %v", svc.computeStoreAndCurate)
	}
}

func TestProcessorRecomputesWhenStillStale(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(0)
	coords := coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0"}
	if err := EnqueueStale(ctx, q, coords, nil); err != nil {
		t.Fatal(err)
	}

	svc := &fakeService{stored: map[string]model.Document{
		coords.Key(): {"described": model.Document{"tools": []any{"x/1"}}, "_meta": model.Document{"schemaVersion": "1.0.0"}},
	}}
	checker, err := NewVersionChecker("2.0.0")
	if err != nil {
		t.Fatal(err)
	}

	p := New(q, computelock.New(time.Minute), svc, checker, logr.Discard(), true)
	if err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(svc.computeStoreAndCurate) != 1 {
		t.Errorf("expected one recompute, got %v", svc.computeStoreAndCurate)
	}
}
