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

package httpapi

import (
	"net/http"

	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
)

// errorBody is the `{error, details:[{message,...}]}` shape spec §6.1
// requires for /harvest and which the other routes reuse for consistency.
type errorBody struct {
	Error   string                `json:"error"`
	Details []sharederrors.Detail `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, details ...sharederrors.Detail) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}
