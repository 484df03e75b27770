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

// Package summarizer implements pkg/definition.Summarizer. Tool-specific
// summarizer behavior is explicitly opaque and out of scope (spec §1): a
// tool's raw harvest output already arrives in the normalized Summary
// shape the aggregator expects, so JSONPassthrough's only job is decoding
// it off the wire.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// JSONPassthrough decodes raw harvest bytes as a JSON object, the
// Summary shape (spec §3: "opaque, tool-specific, normalized shape").
type JSONPassthrough struct{}

func (JSONPassthrough) Summarize(_ context.Context, rc coordinates.ResultCoordinates, raw []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("summarize %s: decode harvest output: %w", rc.String(), err)
	}
	return doc, nil
}
