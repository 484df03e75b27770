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

// Package coordinates implements the canonical entity/result coordinate
// model (spec §3, §4.1): parsing and serializing both the forward-slash form
// and the URN form, with case-insensitive comparison on every part except
// name.
package coordinates

import (
	"fmt"
	"strings"
)

// noNamespace is the sentinel used when a coordinate has no namespace.
const noNamespace = "-"

// EntityCoordinates identifies a component revision.
type EntityCoordinates struct {
	Type      string
	Provider  string
	Namespace string // empty means absent; serialized as "-"
	Name      string
	Revision  string // empty when the coordinate is revision-less
}

// ResultCoordinates extends EntityCoordinates with the tool that produced a
// harvest result.
type ResultCoordinates struct {
	EntityCoordinates
	Tool        string
	ToolVersion string
}

// Parse accepts either the canonical forward-slash form
// (type/provider/namespace/name[/revision][/tool/toolVersion]) or the URN
// form and returns the entity coordinates plus, when present, tool/version.
func Parse(s string) (ResultCoordinates, error) {
	if strings.HasPrefix(s, "urn:") {
		return FromURN(s)
	}
	return fromPath(s)
}

func fromPath(s string) (ResultCoordinates, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 4 {
		return ResultCoordinates{}, fmt.Errorf("coordinates %q: need at least type/provider/namespace/name", s)
	}

	rc := ResultCoordinates{
		EntityCoordinates: EntityCoordinates{
			Type:     strings.ToLower(parts[0]),
			Provider: strings.ToLower(parts[1]),
			Name:     parts[3],
		},
	}
	if parts[2] != noNamespace {
		rc.Namespace = parts[2]
	}
	if len(parts) >= 5 {
		rc.Revision = parts[4]
	}
	if len(parts) >= 7 {
		rc.Tool = strings.ToLower(parts[5])
		rc.ToolVersion = parts[6]
	}
	return rc, nil
}

// FromURN parses the URN form:
// urn:type:provider:namespace:name:revision:<revision>:tool:<tool>:<toolRevision>
// fromUrn fails when fewer than five segments follow the scheme prefix.
func FromURN(urn string) (ResultCoordinates, error) {
	const prefix = "urn:"
	if !strings.HasPrefix(urn, prefix) {
		return ResultCoordinates{}, fmt.Errorf("urn %q: missing urn: prefix", urn)
	}
	segments := strings.Split(strings.TrimPrefix(urn, prefix), ":")
	if len(segments) < 5 {
		return ResultCoordinates{}, fmt.Errorf("urn %q: expected at least 5 segments, got %d", urn, len(segments))
	}

	rc := ResultCoordinates{
		EntityCoordinates: EntityCoordinates{
			Type:     strings.ToLower(segments[0]),
			Provider: strings.ToLower(segments[1]),
			Name:     segments[3],
		},
	}
	if segments[2] != noNamespace {
		rc.Namespace = segments[2]
	}

	// remaining segments come in label:value pairs: revision:<rev>
	// tool:<tool>:<toolRevision>
	rest := segments[4:]
	for i := 0; i < len(rest); {
		switch rest[i] {
		case "revision":
			if i+1 >= len(rest) {
				return ResultCoordinates{}, fmt.Errorf("urn %q: revision label with no value", urn)
			}
			rc.Revision = rest[i+1]
			i += 2
		case "tool":
			if i+2 >= len(rest) {
				return ResultCoordinates{}, fmt.Errorf("urn %q: tool label missing name/version", urn)
			}
			rc.Tool = strings.ToLower(rest[i+1])
			rc.ToolVersion = rest[i+2]
			i += 3
		default:
			// Unrecognized legacy segment; the original revision-only form
			// (urn:type:provider:namespace:name:revision) has no labels.
			if rc.Revision == "" {
				rc.Revision = rest[i]
			}
			i++
		}
	}
	return rc, nil
}

// ToURN renders the URN form of rc, including the tool segment when set.
func (rc ResultCoordinates) ToURN() string {
	ns := rc.Namespace
	if ns == "" {
		ns = noNamespace
	}
	urn := fmt.Sprintf("urn:%s:%s:%s:%s", rc.Type, rc.Provider, ns, rc.Name)
	if rc.Revision != "" {
		urn += ":revision:" + rc.Revision
	}
	if rc.Tool != "" {
		urn += fmt.Sprintf(":tool:%s:%s", rc.Tool, rc.ToolVersion)
	}
	return urn
}

// String renders the canonical forward-slash form, with revision when set.
func (c EntityCoordinates) String() string {
	ns := c.Namespace
	if ns == "" {
		ns = noNamespace
	}
	s := fmt.Sprintf("%s/%s/%s/%s", c.Type, c.Provider, ns, c.Name)
	if c.Revision != "" {
		s += "/" + c.Revision
	}
	return s
}

// StringWithoutRevision renders the canonical form omitting any revision.
func (c EntityCoordinates) StringWithoutRevision() string {
	ns := c.Namespace
	if ns == "" {
		ns = noNamespace
	}
	return fmt.Sprintf("%s/%s/%s/%s", c.Type, c.Provider, ns, c.Name)
}

// String renders the canonical forward-slash form, including tool/version.
func (rc ResultCoordinates) String() string {
	s := rc.EntityCoordinates.String()
	if rc.Tool != "" {
		s += fmt.Sprintf("/%s/%s", rc.Tool, rc.ToolVersion)
	}
	return s
}

// Key returns the case-folded comparison key: provider/type lower-cased
// (already canonical), namespace and name case-folded, revision case-folded.
// Name's original case is preserved in String(); only Key() folds it, so
// storage/display keep the contributor's casing while lookups are
// case-insensitive as spec §3 requires.
func (c EntityCoordinates) Key() string {
	return strings.ToLower(c.String())
}

// Equal compares two coordinates per spec §3: case-insensitive on every
// part, Name included, since both sides compare by Key(); String() still
// preserves each part's display case.
func (c EntityCoordinates) Equal(other EntityCoordinates) bool {
	return c.Key() == other.Key()
}
