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

package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout is used when NewMemoryQueue is given a
// non-positive value.
const DefaultVisibilityTimeout = 30 * time.Second

type entry struct {
	payload      json.RawMessage
	dequeueCount int
	visibleAt    time.Time // zero means immediately visible
	deleted      bool
}

// MemoryQueue is an in-process Queue. It retains a message after dequeue,
// hides it until its visibility timeout elapses, and stops redelivering it
// once DequeueCount reaches MaxDeliveries (spec §4.4).
type MemoryQueue struct {
	mu                sync.Mutex
	entries           []*entry
	handles           map[string]*entry
	visibilityTimeout time.Duration
	now               func() time.Time
}

// NewMemoryQueue builds an empty MemoryQueue with the given visibility
// timeout (DefaultVisibilityTimeout when visibilityTimeout <= 0).
func NewMemoryQueue(visibilityTimeout time.Duration) *MemoryQueue {
	if visibilityTimeout <= 0 {
		visibilityTimeout = DefaultVisibilityTimeout
	}
	return &MemoryQueue{
		handles:           make(map[string]*entry),
		visibilityTimeout: visibilityTimeout,
		now:               time.Now,
	}
}

var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(_ context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &entry{payload: data})
	return nil
}

func (q *MemoryQueue) DequeueMultiple(_ context.Context, max int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	out := make([]Message, 0, max)
	for _, e := range q.entries {
		if len(out) >= max {
			break
		}
		if e.deleted || e.dequeueCount >= MaxDeliveries {
			continue
		}
		if !e.visibleAt.IsZero() && now.Before(e.visibleAt) {
			continue
		}
		e.dequeueCount++
		e.visibleAt = now.Add(q.visibilityTimeout)
		handle := uuid.NewString()
		q.handles[handle] = e
		out = append(out, Message{Handle: handle, Data: e.payload, DequeueCount: e.dequeueCount})
	}
	return out, nil
}

func (q *MemoryQueue) Delete(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.handles[handle]; ok {
		e.deleted = true
		delete(q.handles, handle)
	}
	return nil
}
