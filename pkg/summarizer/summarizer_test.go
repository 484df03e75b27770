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

package summarizer

import (
	"context"
	"testing"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
)

func TestJSONPassthroughDecodesHarvestOutput(t *testing.T) {
	rc, err := coordinates.Parse("npm/npmjs/-/test/1.0.0/scancode/3.2.2")
	if err != nil {
		t.Fatalf("parse coordinates: %v", err)
	}

	doc, err := JSONPassthrough{}.Summarize(context.Background(), rc, []byte(`{"licensed":{"declared":"MIT"}}`))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	licensed, ok := doc["licensed"].(map[string]any)
	if !ok || licensed["declared"] != "MIT" {
		t.Fatalf("unexpected summary: %v", doc)
	}
}

func TestJSONPassthroughRejectsMalformedJSON(t *testing.T) {
	rc, _ := coordinates.Parse("npm/npmjs/-/test/1.0.0/scancode/3.2.2")
	if _, err := (JSONPassthrough{}).Summarize(context.Background(), rc, []byte("not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
