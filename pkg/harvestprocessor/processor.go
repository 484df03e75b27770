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

// Package harvestprocessor implements the harvest-update queue worker (spec
// §4.10, component C11): a single cooperative loop that drains the harvest
// queue, extracts the result URN from each message, and drives the
// definition service's recompute path under the per-coordinate lock.
package harvestprocessor

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/itchyny/gojq"

	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/metrics"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/queue"
)

// clearlyDefinedTool is the synthetic tool name that means "the definition
// pipeline itself produced this harvest", which always recomputes
// unconditionally rather than being subject to the already-processed check
// (spec §4.10 step 5).
const clearlyDefinedTool = "clearlydefined"

// batchSize is how many messages DequeueMultiple is asked for per poll.
const batchSize = 10

// emptyBatchSleep is how long the loop sleeps after an empty dequeue (spec
// §4.10 step 7).
const emptyBatchSleep = 10 * time.Second

// urnQuery extracts the result URN from a harvest-completion message, per
// spec §4.10 step 2 (`data._metadata.links.self.href`).
var urnQuery = mustParseQuery(".data._metadata.links.self.href")

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

// DefinitionService is the subset of pkg/definition.Service the processor
// drives.
type DefinitionService interface {
	GetStored(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, bool, error)
	ComputeAndStore(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error)
	ComputeStoreAndCurate(ctx context.Context, coords coordinates.EntityCoordinates) (model.Document, error)
}

// Processor drains the harvest queue (spec §4.10).
type Processor struct {
	q     queue.Queue
	lock  *computelock.Lock
	svc   DefinitionService
	log   logr.Logger
	once  bool
	sleep func(time.Duration)
}

// New builds a Processor. once=true runs a single drain pass and returns,
// for tests; once=false runs the loop forever until ctx is canceled (spec
// §4.10: "the loop never dies unless once=true").
func New(q queue.Queue, lock *computelock.Lock, svc DefinitionService, log logr.Logger, once bool) *Processor {
	return &Processor{q: q, lock: lock, svc: svc, log: log.WithName("harvest-processor"), once: once, sleep: time.Sleep}
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

// drainOnce performs one dequeueMultiple and processes every message,
// reporting whether the batch was empty.
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
	defer func() { metrics.RecordQueueMessage("harvest", msg.DequeueCount, err) }()

	var urn string
	var ok bool
	urn, ok = extractURN(msg)
	if !ok {
		// Dropped without ack: redelivery (up to MaxDeliveries) gives the
		// crawler a chance to emit a well-formed message (spec §4.10 step 2).
		p.log.Info("harvest message missing result URN, leaving for redelivery", "dequeueCount", msg.DequeueCount)
		return
	}

	var rc coordinates.ResultCoordinates
	rc, err = coordinates.Parse(urn)
	if err != nil {
		p.log.Error(err, "harvest message URN did not parse, leaving for redelivery", "urn", urn)
		return
	}

	var release func()
	release, err = p.lock.Acquire(ctx, rc.EntityCoordinates.Key())
	if err != nil {
		p.log.Error(err, "failed to acquire compute lock", "coordinates", rc.EntityCoordinates.String())
		return
	}
	defer release()

	if err = p.process(ctx, rc); err != nil {
		p.log.Error(err, "harvest message processing failed, leaving for redelivery", "coordinates", rc.EntityCoordinates.String())
		return
	}

	if err = p.q.Delete(ctx, msg.Handle); err != nil {
		p.log.Error(err, "failed to ack harvest message", "coordinates", rc.EntityCoordinates.String())
	}
}

func (p *Processor) process(ctx context.Context, rc coordinates.ResultCoordinates) error {
	if rc.Tool == clearlyDefinedTool {
		_, err := p.svc.ComputeStoreAndCurate(ctx, rc.EntityCoordinates)
		return err
	}

	stored, ok, err := p.svc.GetStored(ctx, rc.EntityCoordinates)
	if err != nil {
		return err
	}
	if ok && stored.HasTool(rc.Tool+"/"+rc.ToolVersion) {
		p.log.Info("Skip definition computation as the tool result has already been processed", "coordinates", rc.EntityCoordinates.String(), "tool", rc.Tool)
		return nil
	}

	_, err = p.svc.ComputeAndStore(ctx, rc.EntityCoordinates)
	return err
}

func extractURN(msg queue.Message) (string, bool) {
	var payload any
	if err := msg.Decode(&payload); err != nil {
		return "", false
	}
	iter := urnQuery.Run(payload)
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if err, isErr := v.(error); isErr {
		_ = err
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
