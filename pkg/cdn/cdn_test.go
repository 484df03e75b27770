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

package cdn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
)

func TestTagIsDeterministic(t *testing.T) {
	c := coordinates.EntityCoordinates{Type: "npm", Name: "left-pad", Revision: "1.0.0"}
	if Tag(c) != Tag(c) {
		t.Fatal("Tag() not deterministic")
	}
}

func TestBatchTagsDeduplicatedAndSorted(t *testing.T) {
	c := coordinates.EntityCoordinates{Type: "npm", Name: "left-pad", Revision: "1.0.0"}
	batch := []coordinates.EntityCoordinates{c, c}
	tags := BatchTags(batch)
	if tags != Tag(c) {
		t.Errorf("BatchTags() = %q, want a single deduplicated tag %q", tags, Tag(c))
	}
}

func TestInvalidateRejectsBlankOrWhitespaceTags(t *testing.T) {
	inv := New(Config{FlushURL: "http://example.invalid"}, logr.Discard())
	if err := inv.Invalidate(context.Background(), ""); err == nil {
		t.Error("Invalidate(\"\") = nil error, want rejection")
	}
	if err := inv.Invalidate(context.Background(), "has space"); err == nil {
		t.Error("Invalidate(\"has space\") = nil error, want rejection")
	}
}

func TestInvalidateFlushesSynchronouslyAtWatermark(t *testing.T) {
	var flushed int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flushed++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inv := New(Config{FlushURL: server.URL, Watermark: 2, Interval: time.Hour}, logr.Discard())
	ctx := context.Background()
	if err := inv.Invalidate(ctx, "111"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if flushed != 0 {
		t.Fatalf("flushed = %d before watermark reached, want 0", flushed)
	}
	if err := inv.Invalidate(ctx, "222"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if flushed != 1 {
		t.Fatalf("flushed = %d at watermark, want 1", flushed)
	}
}

// TestFlushPendingDrainsPastWatermarkInOneRequest guards against splitting
// a pending set that exceeds the watermark into Watermark-sized chunks: a
// flush drains everything queued in a single POST.
func TestFlushPendingDrainsPastWatermarkInOneRequest(t *testing.T) {
	var posts int
	var gotTags []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		var body struct {
			Tags []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		gotTags = body.Tags
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inv := New(Config{FlushURL: server.URL, Watermark: 20, Interval: time.Hour}, logr.Discard())
	ctx := context.Background()

	// Seed 29 tags directly so the pending set is past the watermark (20)
	// by a non-multiple amount before a single FlushPending call.
	const n = 29
	inv.mu.Lock()
	for i := 0; i < n; i++ {
		inv.pending[fmt.Sprintf("tag-%02d", i)] = struct{}{}
	}
	inv.mu.Unlock()

	inv.FlushPending(ctx)

	if posts != 1 {
		t.Fatalf("posts = %d, want exactly 1 POST for a batch past the watermark", posts)
	}
	if len(gotTags) != n {
		t.Fatalf("flushed %d tags, want all %d in a single request", len(gotTags), n)
	}
}
