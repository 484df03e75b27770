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

// Package upgradeprocessor implements the schema-version checker and the
// upgrade-queue worker (spec §4.11, component C12): VersionChecker decides
// whether a stored definition is stale against the configured current
// schema, and Processor drains the upgrade queue recomputing any
// definition still stale on re-check.
package upgradeprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/metrics"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/semver"
	sharederrors "github.com/clearlydefined/catalogd/pkg/shared/errors"
	"github.com/clearlydefined/catalogd/pkg/queue"
)

// batchSize is how many messages DequeueMultiple is asked for per poll.
const batchSize = 10

// emptyBatchSleep mirrors the harvest processor's idle backoff (spec §4.11
// reuses "the same lock discipline as C11").
const emptyBatchSleep = 10 * time.Second

// VersionChecker compares a stored definition's schema version against the
// configured current schema (spec §4.11).
type VersionChecker struct {
	currentSchema string
}

// NewVersionChecker builds a VersionChecker. currentSchema must be set
// (Fatal per spec §7), matching pkg/definition's own constructor check.
func NewVersionChecker(currentSchema string) (*VersionChecker, error) {
	if currentSchema == "" {
		return nil, errFatalMissingSchema
	}
	return &VersionChecker{currentSchema: currentSchema}, nil
}

// Check reports whether def is current (schemaVersion >= currentSchema).
// An absent or empty definition is always stale.
func (c *VersionChecker) Check(def model.Document) bool {
	if model.IsEmptyDefinition(def) {
		return false
	}
	stored := def.GetString("_meta.schemaVersion")
	if stored == "" {
		return false
	}
	return semver.Compare(stored, c.currentSchema) >= 0
}

var errFatalMissingSchema = fmt.Errorf("upgrade processor: currentSchema must be set: %w", sharederrors.ErrFatal)

// UpgradeMessage is the payload enqueued onto the upgrade queue when a
// stale definition is observed in a read path (spec §4.11).
type UpgradeMessage struct {
	Coordinates string         `json:"coordinates"`
	Meta        map[string]any `json:"_meta,omitempty"`
}

// EnqueueStale enqueues an upgrade message for coords (at-least-once; the
// queue worker re-validates before recomputing).
func EnqueueStale(ctx context.Context, q queue.Queue, coords coordinates.EntityCoordinates, meta map[string]any) error {
	return q.Enqueue(ctx, UpgradeMessage{Coordinates: coords.String(), Meta: meta})
}

// DefinitionService is the subset of pkg/definition.Service the processor
// drives.
type DefinitionService interface {
	GetStored(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, bool, error)
	ComputeStoreAndCurate(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error)
}

// Processor drains the upgrade queue (spec §4.11).
type Processor struct {
	q       queue.Queue
	lock    *computelock.Lock
	svc     DefinitionService
	checker *VersionChecker
	log     logr.Logger
	once    bool
	sleep   func(time.Duration)
}

// New builds a Processor.
func New(q queue.Queue, lock *computelock.Lock, svc DefinitionService, checker *VersionChecker, log logr.Logger, once bool) *Processor {
	return &Processor{q: q, lock: lock, svc: svc, checker: checker, log: log.WithName("upgrade-processor"), once: once, sleep: time.Sleep}
}

// Run executes the worker loop.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		empty, err := p.drainOnce(ctx)
		if err != nil {
			return err
		}
		if p.once {
			return nil
		}
		if empty {
			p.sleep(emptyBatchSleep)
		}
	}
}

func (p *Processor) drainOnce(ctx context.Context) (bool, error) {
	messages, err := p.q.DequeueMultiple(ctx, batchSize)
	if err != nil {
		return false, err
	}
	for _, msg := range messages {
		p.handle(ctx, msg)
	}
	return len(messages) == 0, nil
}

func (p *Processor) handle(ctx context.Context, msg queue.Message) {
	var err error
	defer func() { metrics.RecordQueueMessage("upgrade", msg.DequeueCount, err) }()

	var payload UpgradeMessage
	if err = msg.Decode(&payload); err != nil {
		p.log.Error(err, "upgrade message did not decode, leaving for redelivery")
		return
	}

	var rc coordinates.ResultCoordinates
	rc, err = coordinates.Parse(payload.Coordinates)
	if err != nil {
		p.log.Error(err, "upgrade message coordinates did not parse, leaving for redelivery", "coordinates", payload.Coordinates)
		return
	}
	coords := rc.EntityCoordinates

	var release func()
	release, err = p.lock.Acquire(ctx, coords.Key())
	if err != nil {
		p.log.Error(err, "failed to acquire compute lock", "coordinates", coords.String())
		return
	}
	defer release()

	if err = p.process(ctx, coords); err != nil {
		p.log.Error(fmt.Errorf("%s: %w", coords.String(), err), "upgrade message processing failed, leaving for redelivery")
		return
	}

	if err = p.q.Delete(ctx, msg.Handle); err != nil {
		p.log.Error(err, "failed to ack upgrade message", "coordinates", coords.String())
	}
}

func (p *Processor) process(ctx context.Context, coords coordinates.EntityCoordinates) error {
	stored, ok, err := p.svc.GetStored(ctx, coords)
	if err != nil {
		return err
	}
	if ok && p.checker.Check(stored) {
		return nil
	}
	_, err = p.svc.ComputeStoreAndCurate(ctx, coords)
	return err
}
