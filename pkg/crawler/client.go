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

// Package crawler is the external crawler client contract (spec §1: "no
// crawler implementation, only its protocol"). The definition service
// calls Harvest to request a scan when a stored definition has no tool
// contributions yet.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
	sharedhttp "github.com/clearlydefined/catalogd/pkg/shared/http"
)

// HarvestRequest asks the crawler to scan coordinates with tool, per the
// /harvest POST body shape (spec §6.1).
type HarvestRequest struct {
	Tool        string                         `json:"tool"`
	Coordinates coordinates.EntityCoordinates  `json:"coordinates"`
	Policy      string                         `json:"policy,omitempty"`
}

// Client requests harvests from the external crawler service.
type Client interface {
	// Harvest enqueues requests with the crawler. It returns every failure
	// to the caller without logging it; HTTPClient classifies them as
	// validation, not-found, upstream-permanent or upstream-transient
	// errors (or the circuit breaker's own error). Each caller decides
	// what to surface: pkg/definition logs and drops them on its read path.
	Harvest(ctx context.Context, requests []HarvestRequest) error
}

// HTTPClient is the production Client: a circuit-breaker-wrapped HTTP POST
// to the crawler's harvest endpoint.
type HTTPClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPClient builds an HTTPClient talking to baseURL, authenticating
// with authToken, using sharedhttp.CrawlerClientConfig(timeout).
func NewHTTPClient(baseURL, authToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: sharedhttp.NewClient(sharedhttp.CrawlerClientConfig(timeout)),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "crawler",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Harvest(ctx context.Context, requests []HarvestRequest) error {
	body, err := json.Marshal(requests)
	if err != nil {
		return sharederrors.NewValidationError("harvest request could not be encoded", sharederrors.Detail{Message: err.Error()})
	}

	_, err = c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/requests", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.authToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, sharederrors.Transient("crawler harvest request", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, sharederrors.NotFound("crawler endpoint")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, sharederrors.Permanent("crawler harvest request", fmt.Errorf("status %d", resp.StatusCode))
		default:
			return nil, sharederrors.Transient("crawler harvest request", fmt.Errorf("status %d", resp.StatusCode))
		}
	})
	return err
}
