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

// Package computelock implements the per-coordinate compute lock (spec
// §4.5, component C6): a string-keyed boolean marker with a TTL, and the
// poll-wait/acquire/release discipline every compute caller follows.
package computelock

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the lock entry lifetime when one isn't configured.
const DefaultTTL = 300 * time.Second

// pollInterval is the fixed wait between Get polls while a key is held
// (spec §4.5).
const pollInterval = 500 * time.Millisecond

// Lock is an in-process implementation of the compute lock contract. It
// gives per-coordinate mutual exclusion within a single process; cross-
// process exclusion is delegated to the queue's visibility timeout (spec
// §4.5).
type Lock struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	ttl     time.Duration
	now     func() time.Time
}

// New builds a Lock with the given TTL (DefaultTTL when ttl <= 0).
func New(ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Get reports whether key is currently held and unexpired.
func (l *Lock) Get(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heldLocked(key)
}

// Set marks key as held until now+TTL.
func (l *Lock) Set(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = l.now().Add(l.ttl)
}

// heldLocked reports whether key is currently held and unexpired. Callers
// must hold l.mu.
func (l *Lock) heldLocked(key string) bool {
	expiry, ok := l.entries[key]
	if !ok {
		return false
	}
	if l.now().After(expiry) {
		delete(l.entries, key)
		return false
	}
	return true
}

// tryAcquire atomically checks key is free and, if so, Sets it, within a
// single critical section. This is what keeps Acquire's poll loop from
// composing a check-then-act race across two separately-locked Get/Set
// calls.
func (l *Lock) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.heldLocked(key) {
		return false
	}
	l.entries[key] = l.now().Add(l.ttl)
	return true
}

// Delete releases key.
func (l *Lock) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Acquire blocks, polling every 500ms, until key is free, then Sets it and
// returns a release func that Deletes it. Callers must defer release() so
// the lock is dropped on every exit path, success or failure (spec §4.5).
// Acquire returns ctx.Err() if ctx is canceled while waiting.
func (l *Lock) Acquire(ctx context.Context, key string) (release func(), err error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !l.tryAcquire(key) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return func() { l.Delete(key) }, nil
}
