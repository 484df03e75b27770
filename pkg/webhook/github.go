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
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // required by GitHub's X-Hub-Signature scheme, not for confidentiality
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/go-faster/errors"
	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/curation"
)

// consistencyDelay absorbs GitHub's eventual consistency between a webhook
// firing and the PR's files becoming fetchable (spec §6.2).
const consistencyDelay = 10 * time.Second

// CurationService is the subset of pkg/curation.Curator the GitHub webhook
// drives.
type CurationService interface {
	OpenOrUpdate(ctx context.Context, pr int, headCommit string) error
	Merge(ctx context.Context, pr int) ([]curation.AffectedRevision, error)
}

// DefinitionInvalidator is the subset of pkg/definition.Service the GitHub
// webhook drives once a contribution merges.
type DefinitionInvalidator interface {
	Invalidate(ctx context.Context, batch []coordinates.EntityCoordinates) error
}

// GitHubHandler implements the GitHub half of spec §6.2.
type GitHubHandler struct {
	secret      []byte
	curator     CurationService
	definitions DefinitionInvalidator
	log         logr.Logger
	sleep       func(time.Duration)
}

// NewGitHubHandler builds a GitHubHandler verifying X-Hub-Signature against
// secret.
func NewGitHubHandler(secret string, curator CurationService, definitions DefinitionInvalidator, log logr.Logger) *GitHubHandler {
	return &GitHubHandler{
		secret:      []byte(secret),
		curator:     curator,
		definitions: definitions,
		log:         log.WithName("github-webhook"),
		sleep:       time.Sleep,
	}
}

type pullRequestEvent struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Merged bool `json:"merged"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
}

func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")
	signature := r.Header.Get("X-Hub-Signature")
	if event == "" || signature == "" {
		writeError(w, http.StatusBadRequest, "missing X-GitHub-Event or X-Hub-Signature header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}
	if !verifySignature(h.secret, signature, body) {
		writeError(w, http.StatusBadRequest, "X-Hub-Signature mismatch")
		return
	}

	if event != "pull_request" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var evt pullRequestEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	h.dispatch(r.Context(), evt)
	w.WriteHeader(http.StatusOK)
}

// dispatch runs the action handling described in spec §6.2; unknown actions
// are a deliberate no-op. Errors are logged, never surfaced.
func (h *GitHubHandler) dispatch(ctx context.Context, evt pullRequestEvent) {
	switch evt.Action {
	case "opened", "reopened", "synchronize":
		h.sleep(consistencyDelay)
		if err := h.curator.OpenOrUpdate(ctx, evt.Number, evt.PullRequest.Head.SHA); err != nil {
			h.log.Error(goerrors.Wrap(err, "update contribution"), "failed to update contribution", "pr", evt.Number)
		}
	case "closed":
		h.sleep(consistencyDelay)
		// Capture the contribution's final state before deciding whether it
		// merged, then merge it if it did (spec §6.2's "addByMergedCuration
		// + updateContribution").
		if err := h.curator.OpenOrUpdate(ctx, evt.Number, evt.PullRequest.Head.SHA); err != nil {
			h.log.Error(goerrors.Wrap(err, "update contribution"), "failed to update contribution on close", "pr", evt.Number)
		}
		if !evt.PullRequest.Merged {
			return
		}
		affected, err := h.curator.Merge(ctx, evt.Number)
		if err != nil {
			h.log.Error(goerrors.Wrap(err, "merge contribution"), "failed to merge contribution", "pr", evt.Number)
			return
		}
		if len(affected) == 0 {
			return
		}
		batch := make([]coordinates.EntityCoordinates, len(affected))
		for i, a := range affected {
			coords := a.Coordinates
			coords.Revision = a.Revision
			batch[i] = coords
		}
		if err := h.definitions.Invalidate(ctx, batch); err != nil {
			h.log.Error(goerrors.Wrap(err, "invalidate merged definitions"), "failed to invalidate affected definitions", "pr", evt.Number)
		}
	}
}

func verifySignature(secret []byte, header string, body []byte) bool {
	const prefix = "sha1="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	sig, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
