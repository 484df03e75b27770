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

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // test fixture needs to match GitHub's own signing scheme
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/curation"
)

const testSecret = "webhook-secret"

func sign(body string) string {
	mac := hmac.New(sha1.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

type fakeCurationService struct {
	openOrUpdateCalls []int
	mergeCalls        []int
	mergeResult       []curation.AffectedRevision
	mergeErr          error
}

func (f *fakeCurationService) OpenOrUpdate(_ context.Context, pr int, _ string) error {
	f.openOrUpdateCalls = append(f.openOrUpdateCalls, pr)
	return nil
}

func (f *fakeCurationService) Merge(_ context.Context, pr int) ([]curation.AffectedRevision, error) {
	f.mergeCalls = append(f.mergeCalls, pr)
	return f.mergeResult, f.mergeErr
}

type fakeInvalidator struct {
	batches [][]coordinates.EntityCoordinates
}

func (f *fakeInvalidator) Invalidate(_ context.Context, batch []coordinates.EntityCoordinates) error {
	f.batches = append(f.batches, batch)
	return nil
}

func newTestGitHubHandler(curator CurationService, inv DefinitionInvalidator) *GitHubHandler {
	h := NewGitHubHandler(testSecret, curator, inv, logr.Discard())
	h.sleep = func(time.Duration) {}
	return h
}

func TestGitHubHandlerRejectsMissingHeaders(t *testing.T) {
	h := newTestGitHubHandler(&fakeCurationService{}, &fakeInvalidator{})
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("Code = %d, want 400", rec.Code)
	}
}

func TestGitHubHandlerRejectsBadSignature(t *testing.T) {
	h := newTestGitHubHandler(&fakeCurationService{}, &fakeInvalidator{})
	body := `{"action":"opened","number":42}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature", "sha1=deadbeef")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("Code = %d, want 400", rec.Code)
	}
}

func TestGitHubHandlerOpenedUpdatesContribution(t *testing.T) {
	curator := &fakeCurationService{}
	h := newTestGitHubHandler(curator, &fakeInvalidator{})
	body := `{"action":"opened","number":42,"pull_request":{"head":{"sha":"abc123"}}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature", sign(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Code = %d, want 200", rec.Code)
	}
	if len(curator.openOrUpdateCalls) != 1 || curator.openOrUpdateCalls[0] != 42 {
		t.Fatalf("OpenOrUpdate calls = %v, want [42]", curator.openOrUpdateCalls)
	}
}

func TestGitHubHandlerClosedMergedInvalidatesAffectedRevisions(t *testing.T) {
	curator := &fakeCurationService{
		mergeResult: []curation.AffectedRevision{
			{Coordinates: coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad"}, Revision: "1.0.0"},
		},
	}
	inv := &fakeInvalidator{}
	h := newTestGitHubHandler(curator, inv)
	body := `{"action":"closed","number":7,"pull_request":{"merged":true,"head":{"sha":"def456"}}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature", sign(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Code = %d, want 200", rec.Code)
	}
	if len(curator.mergeCalls) != 1 || curator.mergeCalls[0] != 7 {
		t.Fatalf("Merge calls = %v, want [7]", curator.mergeCalls)
	}
	if len(inv.batches) != 1 || len(inv.batches[0]) != 1 {
		t.Fatalf("Invalidate batches = %+v, want one batch of one coordinate", inv.batches)
	}
	if inv.batches[0][0].Revision != "1.0.0" {
		t.Errorf("invalidated revision = %q, want 1.0.0", inv.batches[0][0].Revision)
	}
}

func TestGitHubHandlerClosedUnmergedDoesNotInvalidate(t *testing.T) {
	curator := &fakeCurationService{}
	inv := &fakeInvalidator{}
	h := newTestGitHubHandler(curator, inv)
	body := `{"action":"closed","number":7,"pull_request":{"merged":false,"head":{"sha":"def456"}}}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature", sign(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Code = %d, want 200", rec.Code)
	}
	if len(curator.mergeCalls) != 0 {
		t.Fatalf("expected Merge not to be called, got %v", curator.mergeCalls)
	}
	if len(inv.batches) != 0 {
		t.Fatalf("expected no invalidation, got %+v", inv.batches)
	}
}

func TestGitHubHandlerUnknownActionIsNoOp(t *testing.T) {
	curator := &fakeCurationService{}
	h := newTestGitHubHandler(curator, &fakeInvalidator{})
	body := `{"action":"labeled","number":7}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature", sign(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Code = %d, want 200", rec.Code)
	}
	if len(curator.openOrUpdateCalls) != 0 || len(curator.mergeCalls) != 0 {
		t.Fatal("expected no curator calls for an unknown action")
	}
}
