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

// Package curation applies community-submitted corrections to aggregated
// definitions and manages the pull-request contribution workflow that
// proposes them (spec §4.7, component C8).
package curation

import (
	"context"
	"fmt"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// CoordinatesKey is the {type,provider,namespace,name} subset a Curation
// document is keyed on — revision lives inside the document, one entry per
// revision (spec §3).
type CoordinatesKey struct {
	Type      string `yaml:"type" validate:"required"`
	Provider  string `yaml:"provider" validate:"required"`
	Namespace string `yaml:"namespace,omitempty"`
	Name      string `yaml:"name" validate:"required"`
}

// Curation is the text form stored one-file-per-component in the
// source-of-truth repository: a mapping of revision to partial Definition.
type Curation struct {
	Coordinates CoordinatesKey            `yaml:"coordinates" validate:"required"`
	Revisions   map[string]model.Document `yaml:"revisions"`
}

// PatchFor returns the patch for revision, or ok=false when the curation
// has no entry for it.
func (c Curation) PatchFor(revision string) (model.Document, bool) {
	if c.Revisions == nil {
		return nil, false
	}
	patch, ok := c.Revisions[revision]
	return patch, ok
}

// Path returns the repository-relative path the curation for coords is
// stored at (spec §6.3): curations/<type>/<provider>/[<namespace>/]<name>.yaml.
func Path(coords coordinates.EntityCoordinates) string {
	ns := ""
	if coords.Namespace != "" {
		ns = coords.Namespace + "/"
	}
	return fmt.Sprintf("curations/%s/%s/%s%s.yaml", coords.Type, coords.Provider, ns, coords.Name)
}

// Contribution is a transient, PR-scoped set of proposed curation patches
// (spec §3): it exists from PR open until merge or close-without-merge.
type Contribution struct {
	PR         int
	HeadCommit string
	// Patches is path (per Path()) -> decoded Curation, one per affected
	// component, as last fetched from the PR branch.
	Patches map[string]Curation
}

// Repository is the abstract source-of-truth contract: a Git-backed store
// of one curation YAML file per component, plus the ability to read the
// files a pull request currently proposes. Out of scope per spec §1
// ("GitHub webhook ... thin adapters"); only the contract lives here.
type Repository interface {
	// ReadCurationFile returns the merged curation text at path, or
	// ok=false when no curation exists yet for that component.
	ReadCurationFile(ctx context.Context, path string) (raw string, ok bool, err error)
	// FetchPRFiles returns path -> raw YAML for every curation file the PR
	// head commit touches.
	FetchPRFiles(ctx context.Context, pr int, headCommit string) (map[string]string, error)
	// WriteCurationFile persists raw as the merged curation text at path.
	WriteCurationFile(ctx context.Context, path string, raw string) error
}
