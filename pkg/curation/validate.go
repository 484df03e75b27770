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

package curation

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-playground/validator/v10"
	"github.com/open-policy-agent/opa/rego"
	"gopkg.in/yaml.v3"

	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
)

// curationSchema forbids additional top-level properties, matching the
// "schema rejection of inputs" contract the HTTP layer uses for request
// bodies (spec §6.1) — applied here to contribution patches instead.
var curationSchema = &openapi3.Schema{
	Type:                 &openapi3.Types{"object"},
	Required:             []string{"coordinates"},
	AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	Properties: openapi3.Schemas{
		"coordinates": openapi3.NewSchemaRef("", &openapi3.Schema{Type: &openapi3.Types{"object"}}),
		"revisions":   openapi3.NewSchemaRef("", &openapi3.Schema{Type: &openapi3.Types{"object"}}),
	},
}

func boolPtr(b bool) *bool { return &b }

// policyModule is the rego policy every accepted curation patch must
// satisfy. It rejects a patch that curates a declared license to an empty
// string, which would silently regress a score (spec §4.8).
const policyModule = `
package catalogd.curation

default allow = true

deny[msg] {
	some revision
	patch := input.revisions[revision]
	patch.licensed.declared == ""
	msg := sprintf("revision %v curates licensed.declared to an empty string", [revision])
}
`

var structValidator = validator.New()

// Validate decodes raw YAML, checks it against curationSchema and
// structValidator, and evaluates it against policyModule. It returns a
// sharederrors.ValidationError (via sharederrors.NewValidationError) on any
// failure, per spec §7's Validation taxonomy entry.
func Validate(ctx context.Context, raw string) (Curation, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return Curation{}, sharederrors.NewValidationError("curation is not valid YAML", sharederrors.Detail{Path: "body", Message: err.Error()})
	}
	if err := curationSchema.VisitJSON(doc); err != nil {
		return Curation{}, sharederrors.NewValidationError("curation failed schema validation", sharederrors.Detail{Path: "body", Message: err.Error()})
	}

	var cur Curation
	if err := yaml.Unmarshal([]byte(raw), &cur); err != nil {
		return Curation{}, sharederrors.NewValidationError("curation could not be decoded", sharederrors.Detail{Path: "body", Message: err.Error()})
	}
	if err := structValidator.Struct(cur); err != nil {
		return Curation{}, sharederrors.NewValidationError("curation failed field validation", sharederrors.Detail{Path: "coordinates", Message: err.Error()})
	}

	if err := evaluatePolicy(ctx, doc); err != nil {
		return Curation{}, err
	}
	return cur, nil
}

func evaluatePolicy(ctx context.Context, doc map[string]any) error {
	query, err := rego.New(
		rego.Query("data.catalogd.curation.deny"),
		rego.Module("curation.rego", policyModule),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("preparing curation policy: %w", err)
	}

	results, err := query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return fmt.Errorf("evaluating curation policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil
	}
	denials, _ := results[0].Expressions[0].Value.([]any)
	if len(denials) == 0 {
		return nil
	}
	details := make([]sharederrors.Detail, 0, len(denials))
	for _, d := range denials {
		if msg, ok := d.(string); ok {
			details = append(details, sharederrors.Detail{Path: "revisions", Message: msg})
		}
	}
	return sharederrors.NewValidationError("curation rejected by policy", details...)
}
