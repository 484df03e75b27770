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

// Package semver orders tool-version strings by semantic-version
// precedence, falling back to lexicographic descending order for values
// golang.org/x/mod/semver can't parse (tool versions are not guaranteed to
// be valid semver, e.g. "3.2.2-beta" vs date-stamped builds).
package semver

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Compare returns -1, 0 or +1 the way sort.Slice expects: a<b, a==b, a>b.
// When both values parse as semver, semantic precedence wins; otherwise it
// falls back to a plain string comparison so ordering is still total and
// deterministic.
func Compare(a, b string) int {
	ca, cb := canonical(a), canonical(b)
	if semver.IsValid(ca) && semver.IsValid(cb) {
		return semver.Compare(ca, cb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Highest returns the version in versions with the greatest precedence,
// breaking ties lexicographically descending (spec §4.2). versions must be
// non-empty.
func Highest(versions []string) string {
	best := versions[0]
	for _, v := range versions[1:] {
		c := Compare(v, best)
		if c > 0 || (c == 0 && v > best) {
			best = v
		}
	}
	return best
}

// SortDescending sorts versions by descending semantic precedence, ties
// broken lexicographically descending.
func SortDescending(versions []string) []string {
	out := make([]string, len(versions))
	copy(out, versions)
	sort.Slice(out, func(i, j int) bool {
		c := Compare(out[i], out[j])
		if c != 0 {
			return c > 0
		}
		return out[i] > out[j]
	})
	return out
}
