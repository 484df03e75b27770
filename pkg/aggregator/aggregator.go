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

// Package aggregator merges per-tool summaries into a single Definition
// honoring tool precedence (spec §4.6, component C7).
package aggregator

import (
	"strings"

	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/semver"
)

// SummarizedData is tool name -> tool version -> that version's Summary.
type SummarizedData map[string]map[string]model.Document

// PrecedenceGroup is a set of mutually exclusive alternatives, the first
// listed one preferred, each a toolSpec of the form "name" or
// "name/version".
type PrecedenceGroup []string

// clearlyDefinedTool is the tool name whose contribution drives the
// crate-license override and the file-list intersection post-rules (spec §3).
const clearlyDefinedTool = "clearlydefined"

type resolvedTool struct {
	name    string
	version string
	summary model.Document
}

// Aggregate merges data according to precedence (highest-priority group
// first) and returns the merged Definition plus ok=false when no tool in
// precedence contributed data. componentType drives the crate-license
// override (spec §3).
func Aggregate(componentType string, data SummarizedData, precedence []PrecedenceGroup) (model.Document, bool) {
	resolved := make([]resolvedTool, 0, len(precedence))
	for _, group := range precedence {
		if rt, ok := resolveGroup(group, data); ok {
			resolved = append(resolved, rt)
		}
	}
	if len(resolved) == 0 {
		return nil, false
	}

	// resolved is highest-priority first; merge lowest-priority first so a
	// higher-priority tool's scalar values win the deep merge.
	acc := model.Document{}
	tools := make([]any, 0, len(resolved))
	var clearlyDefined *resolvedTool
	for i := len(resolved) - 1; i >= 0; i-- {
		rt := resolved[i]
		acc = model.DeepMerge(acc, rt.summary.Clone())
		tools = append(tools, rt.name+"/"+rt.version)
		if rt.name == clearlyDefinedTool {
			r := rt
			clearlyDefined = &r
		}
	}
	acc.Set("described.tools", tools)

	applyPostRules(componentType, acc, clearlyDefined)
	return acc, true
}

func resolveGroup(group PrecedenceGroup, data SummarizedData) (resolvedTool, bool) {
	for _, spec := range group {
		name, version, hasVersion := strings.Cut(spec, "/")
		versions := data[name]
		if len(versions) == 0 {
			continue
		}
		if hasVersion {
			summary, ok := versions[version]
			if !ok {
				continue
			}
			return resolvedTool{name: name, version: version, summary: summary}, true
		}
		keys := make([]string, 0, len(versions))
		for v := range versions {
			keys = append(keys, v)
		}
		highest := semver.Highest(keys)
		return resolvedTool{name: name, version: highest, summary: versions[highest]}, true
	}
	return resolvedTool{}, false
}

// applyPostRules implements spec §3's two aggregation invariants that only
// make sense after the full merge has run.
func applyPostRules(componentType string, acc model.Document, clearlyDefined *resolvedTool) {
	if clearlyDefined == nil {
		return
	}

	if strings.EqualFold(componentType, "crate") {
		if declared := clearlyDefined.summary.GetString("licensed.declared"); declared != "" && declared != "NOASSERTION" {
			acc.Set("licensed.declared", declared)
		}
	}

	cdFiles := clearlyDefined.summary.Files()
	if cdFiles == nil {
		return
	}
	allowed := make(map[string]bool, len(cdFiles))
	for _, f := range cdFiles {
		allowed[f.FilePath()] = true
	}
	kept := make([]model.Document, 0, len(acc.Files()))
	for _, f := range acc.Files() {
		if allowed[f.FilePath()] {
			kept = append(kept, f)
		}
	}
	acc.SetFiles(kept)
}
