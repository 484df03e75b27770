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

package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	goerrors "github.com/go-faster/errors"
	"github.com/go-logr/logr"
	"github.com/itchyny/gojq"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

// clearlyDefinedTool is the tool name that always recomputes unconditionally
// rather than going through the already-processed check (spec §6.2).
const clearlyDefinedTool = "clearlydefined"

var crawlerURNQuery = mustParseQuery(".data._metadata.links.self.href")

func mustParseQuery(src string) *gojq.Code {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(err)
	}
	return code
}

// DefinitionService is the subset of pkg/definition.Service the crawler
// webhook drives.
type DefinitionService interface {
	ComputeStoreAndCurate(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error)
	ComputeAndStoreIfNecessary(ctx context.Context, coords coordinates.EntityCoordinates, tool, toolVersion string) (model.Document, error)
}

// CrawlerHandler implements the crawler half of spec §6.2.
type CrawlerHandler struct {
	secret string
	svc    DefinitionService
	log    logr.Logger
}

// NewCrawlerHandler builds a CrawlerHandler checking the X-Crawler header
// against secret.
func NewCrawlerHandler(secret string, svc DefinitionService, log logr.Logger) *CrawlerHandler {
	return &CrawlerHandler{secret: secret, svc: svc, log: log.WithName("crawler-webhook")}
}

func (h *CrawlerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Constant-time compare: the configured secret is effectively a
	// password, not public information (spec §7 AuthFailure).
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Crawler")), []byte(h.secret)) != 1 {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Crawler header")
		return
	}

	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	urn, ok := extractURN(payload)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing data._metadata.links.self.href")
		return
	}
	rc, err := coordinates.Parse(urn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "result URN did not parse")
		return
	}

	h.dispatch(r.Context(), rc)
	w.WriteHeader(http.StatusOK)
}

// dispatch drives the recompute; errors are logged, never surfaced, per
// spec §6.2 ("errors logged, not returned").
func (h *CrawlerHandler) dispatch(ctx context.Context, rc coordinates.ResultCoordinates) {
	var err error
	if rc.Tool == clearlyDefinedTool {
		_, err = h.svc.ComputeStoreAndCurate(ctx, rc.EntityCoordinates)
	} else {
		_, err = h.svc.ComputeAndStoreIfNecessary(ctx, rc.EntityCoordinates, rc.Tool, rc.ToolVersion)
	}
	if err != nil {
		h.log.Error(goerrors.Wrap(err, "crawler webhook dispatch"), "failed to process crawler notification", "coordinates", rc.EntityCoordinates.String())
	}
}

func extractURN(payload any) (string, bool) {
	iter := crawlerURNQuery.Run(payload)
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if _, isErr := v.(error); isErr {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
