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

// Package scoring computes the described/licensed scores for a merged
// definition (spec §4.8, component C9). Computation is pure over the
// merged Document; it never reads from a store.
package scoring

import (
	"regexp"
	"strings"

	"github.com/clearlydefined/catalogd/pkg/model"
)

// Score is a structured point breakdown summing to Total (0-100).
type Score struct {
	ReleaseDate     int `json:"releaseDate"`
	SourceLocation  int `json:"sourceLocation,omitempty"`
	ProjectWebsite  int `json:"projectWebsite,omitempty"`
	IssueTracker    int `json:"issueTracker,omitempty"`
	ToolCount       int `json:"toolCount,omitempty"`
	Declared        int `json:"declared,omitempty"`
	Discovered      int `json:"discovered,omitempty"`
	Texts           int `json:"texts,omitempty"`
	Attribution     int `json:"attribution,omitempty"`
	SPDXValid       int `json:"spdxValid,omitempty"`
	Total           int `json:"total"`
}

// noAssertion marks a declared license as effectively absent for scoring
// (spec §3).
const noAssertion = "NOASSERTION"

// Described computes the described score of def out of 100 (spec §4.8).
func Described(def model.Document) Score {
	var s Score
	if def.GetString("described.releaseDate") != "" {
		s.ReleaseDate = 30
	}
	if def.GetString("described.sourceLocation") != "" {
		s.SourceLocation = 30
	}
	if def.GetString("described.projectWebsite") != "" {
		s.ProjectWebsite = 15
	}
	if def.GetString("described.issueTracker") != "" {
		s.IssueTracker = 15
	}
	if toolCount(def) >= 2 {
		s.ToolCount = 10
	}
	s.Total = s.ReleaseDate + s.SourceLocation + s.ProjectWebsite + s.IssueTracker + s.ToolCount
	return s
}

func toolCount(def model.Document) int {
	v, ok := def.Get("described.tools")
	if !ok {
		return 0
	}
	list, _ := v.([]any)
	return len(list)
}

// Licensed computes the licensed score of def out of 100 (spec §4.8). Only
// files in the "core" facet (the default when a file has no facets field)
// count toward licensed scoring.
func Licensed(def model.Document) Score {
	var s Score
	declared := def.GetString("licensed.declared")
	hasDeclared := declared != "" && declared != noAssertion
	if hasDeclared {
		s.Declared = 30
	}

	core := coreFiles(def)

	if hasDeclared && discoveredConsistent(core, declared) {
		s.Discovered = 15
	}
	if hasDeclared && hasLicenseText(core) {
		s.Texts = 15
	}
	s.Attribution = int(25 * attributionFraction(core))
	if hasDeclared && isValidSPDX(declared) {
		s.SPDXValid = 15
	}

	s.Total = s.Declared + s.Discovered + s.Texts + s.Attribution + s.SPDXValid
	return s
}

func coreFiles(def model.Document) []model.Document {
	all := def.Files()
	out := make([]model.Document, 0, len(all))
	for _, f := range all {
		if isCoreFacet(f) {
			out = append(out, f)
		}
	}
	return out
}

func isCoreFacet(f model.Document) bool {
	v, ok := f.Get("facets")
	if !ok {
		return true
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return true
	}
	for _, item := range list {
		if s, ok := item.(string); ok && strings.EqualFold(s, "core") {
			return true
		}
	}
	return false
}

// discoveredConsistent reports whether every core file that declares a
// license agrees with the aggregate declared license.
func discoveredConsistent(files []model.Document, declared string) bool {
	found := false
	for _, f := range files {
		license := f.GetString("license")
		if license == "" {
			continue
		}
		found = true
		if !strings.EqualFold(license, declared) {
			return false
		}
	}
	return found
}

func hasLicenseText(files []model.Document) bool {
	for _, f := range files {
		if f.GetString("token") != "" {
			return true
		}
		if natures, ok := f.Get("natures"); ok {
			if list, ok := natures.([]any); ok {
				for _, n := range list {
					if s, ok := n.(string); ok && strings.EqualFold(s, "license") {
						return true
					}
				}
			}
		}
	}
	return false
}

func attributionFraction(files []model.Document) float64 {
	if len(files) == 0 {
		return 0
	}
	credited := 0
	for _, f := range files {
		if f.GetString("license") == "" {
			continue
		}
		attrs, ok := f.Get("attributions")
		if !ok {
			continue
		}
		if list, ok := attrs.([]any); ok && len(list) > 0 {
			credited++
		}
	}
	return float64(credited) / float64(len(files))
}

// spdxExpr is a permissive check for a single SPDX license identifier or a
// simple AND/OR/WITH compound expression.
var spdxExpr = regexp.MustCompile(`^[A-Za-z0-9.\-+]+( (AND|OR|WITH) [A-Za-z0-9.\-+]+)*$`)

func isValidSPDX(declared string) bool {
	return spdxExpr.MatchString(strings.TrimSpace(declared))
}
