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

// Package webhook holds the two inbound webhook adapters (spec §6.2): the
// crawler's result-completion notification and GitHub's pull-request
// lifecycle events. Both are thin dispatchers onto pkg/definition and
// pkg/curation — the protocol details (header checks, signature
// verification, URN extraction) live here because spec §6.2 owns them,
// even though §1 calls the GitHub adapter itself "out of scope".
package webhook

import (
	"encoding/json"
	"net/http"

	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
)

type errorResponse struct {
	Error   string                `json:"error"`
	Details []sharederrors.Detail `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
