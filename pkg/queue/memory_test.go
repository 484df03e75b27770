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
	"testing"
	"time"
)

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute)
	must(t, q.Enqueue(ctx, map[string]string{"coordinates": "npm/npmjs/-/left-pad/1.0.0"}))

	msgs, err := q.DequeueMultiple(ctx, 10)
	if err != nil {
		t.Fatalf("DequeueMultiple: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("DequeueMultiple() = %d messages, want 1", len(msgs))
	}
	if msgs[0].DequeueCount != 1 {
		t.Errorf("DequeueCount = %d, want 1", msgs[0].DequeueCount)
	}
	var data map[string]string
	must(t, msgs[0].Decode(&data))
	if data["coordinates"] != "npm/npmjs/-/left-pad/1.0.0" {
		t.Errorf("decoded payload = %v", data)
	}
}

func TestMessageHiddenUntilVisibilityTimeoutElapses(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute)
	must(t, q.Enqueue(ctx, "payload"))

	first, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	if len(first) != 1 {
		t.Fatalf("first dequeue = %d messages, want 1", len(first))
	}

	second, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	if len(second) != 0 {
		t.Fatalf("second dequeue before visibility timeout = %d messages, want 0", len(second))
	}
}

func TestMessageVisibleAgainAfterTimeout(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute)
	must(t, q.Enqueue(ctx, "payload"))
	q.now = func() time.Time { return time.Now() }

	must(t, drain1(t, q))

	// Simulate the visibility timeout elapsing.
	advanced := time.Now().Add(2 * time.Minute)
	q.now = func() time.Time { return advanced }

	redelivered, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	if len(redelivered) != 1 {
		t.Fatalf("redelivery after timeout = %d messages, want 1", len(redelivered))
	}
	if redelivered[0].DequeueCount != 2 {
		t.Errorf("DequeueCount after redelivery = %d, want 2", redelivered[0].DequeueCount)
	}
}

func TestDeleteAcknowledgesMessage(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute)
	must(t, q.Enqueue(ctx, "payload"))

	msgs, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	must(t, q.Delete(ctx, msgs[0].Handle))

	q.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	redelivered, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	if len(redelivered) != 0 {
		t.Fatalf("deleted message redelivered: %v", redelivered)
	}
}

func TestStopsRedeliveringAfterMaxDeliveries(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Millisecond)
	must(t, q.Enqueue(ctx, "payload"))

	var last []Message
	for i := 0; i < MaxDeliveries; i++ {
		q.now = func() time.Time { return time.Now().Add(time.Duration(i) * time.Second) }
		msgs, err := q.DequeueMultiple(ctx, 10)
		must(t, err)
		last = msgs
	}
	if len(last) != 1 || last[0].DequeueCount != MaxDeliveries {
		t.Fatalf("delivery %d = %v, want DequeueCount=%d", MaxDeliveries, last, MaxDeliveries)
	}

	q.now = func() time.Time { return time.Now().Add(time.Hour) }
	abandoned, err := q.DequeueMultiple(ctx, 10)
	must(t, err)
	if len(abandoned) != 0 {
		t.Fatalf("message redelivered beyond MaxDeliveries: %v", abandoned)
	}
}

func drain1(t *testing.T, q *MemoryQueue) error {
	t.Helper()
	msgs, err := q.DequeueMultiple(context.Background(), 10)
	if err != nil {
		return err
	}
	if len(msgs) != 1 {
		t.Fatalf("drain1: got %d messages, want 1", len(msgs))
	}
	return nil
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
