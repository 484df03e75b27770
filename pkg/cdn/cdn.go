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

// Package cdn batches cache-invalidation tags and flushes them to a CDN's
// flush-by-tag endpoint on a watermark/periodic-timer policy (spec §4.12,
// component C13).
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/metrics"
	sharedhttp "github.com/clearlydefined/catalogd/pkg/shared/http"
)

// DefaultWatermark and DefaultInterval match spec §4.12's defaults.
const (
	DefaultWatermark = 250
	DefaultInterval  = 5 * time.Minute
)

// Config configures an Invalidator.
type Config struct {
	FlushURL   string
	AuthKey    string
	AuthEmail  string
	Watermark  int
	Interval   time.Duration
}

// Invalidator is a write-behind queue of invalidation tags.
type Invalidator struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        logr.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// Tag derives the CDN tag for a single coordinate: the decimal string form
// of an int32 hash of "type|name|revision" (spec §4.12).
func Tag(coords coordinates.EntityCoordinates) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(coords.Type + "|" + coords.Name + "|" + coords.Revision))
	return strconv.FormatInt(int64(int32(h.Sum32())), 10)
}

// BatchTags derives and deduplicates the tags for a batch of coordinates,
// comma-joined (spec §4.12).
func BatchTags(batch []coordinates.EntityCoordinates) string {
	seen := make(map[string]struct{}, len(batch))
	tags := make([]string, 0, len(batch))
	for _, c := range batch {
		t := Tag(c)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

// New builds an Invalidator. Zero Watermark/Interval fall back to the
// spec defaults.
func New(cfg Config, log logr.Logger) *Invalidator {
	if cfg.Watermark <= 0 {
		cfg.Watermark = DefaultWatermark
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Invalidator{
		cfg:        cfg,
		httpClient: sharedhttp.NewClient(sharedhttp.CDNClientConfig()),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cdn-flush",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		log:     log.WithName("cdn"),
		pending: make(map[string]struct{}),
	}
}

// Invalidate validates and queues tag, flushing synchronously once the
// watermark is reached (spec §4.12).
func (inv *Invalidator) Invalidate(ctx context.Context, tag string) error {
	if tag == "" || strings.ContainsAny(tag, " \t\n\r") {
		return fmt.Errorf("cdn: invalid tag %q: must be non-empty and whitespace-free", tag)
	}

	inv.mu.Lock()
	inv.pending[tag] = struct{}{}
	shouldFlush := len(inv.pending) >= inv.cfg.Watermark
	inv.mu.Unlock()

	if shouldFlush {
		inv.FlushPending(ctx)
	}
	return nil
}

// FlushPending drains the whole pending set and POSTs it in a single
// request; a failure is logged but does not retain the drained tags
// (spec §4.12).
func (inv *Invalidator) FlushPending(ctx context.Context) {
	inv.mu.Lock()
	tags := make([]string, 0, len(inv.pending))
	for t := range inv.pending {
		tags = append(tags, t)
	}
	inv.pending = make(map[string]struct{})
	inv.mu.Unlock()

	if len(tags) == 0 {
		inv.resetTimer(ctx)
		return
	}

	sort.Strings(tags)
	if err := inv.flushChunk(ctx, tags); err != nil {
		inv.log.Error(err, "cdn flush failed", "tagCount", len(tags))
	}
	inv.resetTimer(ctx)
}

func (inv *Invalidator) flushChunk(ctx context.Context, tags []string) error {
	defer metrics.RecordCDNFlush(time.Now())

	body, err := json.Marshal(map[string]any{"tags": tags})
	if err != nil {
		return err
	}

	_, err = inv.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, inv.cfg.FlushURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Auth-Key", inv.cfg.AuthKey)
		req.Header.Set("X-Auth-Email", inv.cfg.AuthEmail)

		resp, err := inv.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("cdn flush: status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// Start runs the periodic flush timer until ctx is canceled.
func (inv *Invalidator) Start(ctx context.Context) {
	inv.mu.Lock()
	inv.timer = time.NewTimer(inv.cfg.Interval)
	inv.mu.Unlock()

	for {
		inv.mu.Lock()
		timer := inv.timer
		inv.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			inv.FlushPending(ctx)
		}
	}
}

func (inv *Invalidator) resetTimer(_ context.Context) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.timer != nil {
		inv.timer.Reset(inv.cfg.Interval)
	}
}

// Uninitialize flushes once more and stops the timer.
func (inv *Invalidator) Uninitialize(ctx context.Context) {
	inv.FlushPending(ctx)
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.timer != nil {
		inv.timer.Stop()
	}
}
