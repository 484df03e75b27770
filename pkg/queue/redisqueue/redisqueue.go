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

// Package redisqueue is a Redis Streams-backed implementation of the
// abstract queue.Queue contract (spec §4.4, component C5), a second
// concrete queue alongside queue.MemoryQueue.
//
// A consumer group gives every message an owning consumer and a pending
// entries list (PEL); DequeueMultiple first reclaims PEL entries idle
// longer than the visibility timeout (crash/redelivery recovery) via
// XAutoClaim, then reads fresh entries with XReadGroup. Delivery counts
// come from XPending's RetryCount field, so MaxDeliveries is enforced the
// same way queue.MemoryQueue enforces it: a message delivered too many
// times is acknowledged away instead of handed to the caller.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clearlydefined/catalogd/pkg/queue"
)

// DefaultVisibilityTimeout mirrors queue.DefaultVisibilityTimeout.
const DefaultVisibilityTimeout = queue.DefaultVisibilityTimeout

const payloadField = "payload"

// Queue is a Redis Streams-backed queue.Queue.
type Queue struct {
	client            *redis.Client
	stream            string
	group             string
	consumer          string
	visibilityTimeout time.Duration
}

var _ queue.Queue = (*Queue)(nil)

// New returns a Queue backed by the given Redis stream key. It creates the
// consumer group (MKSTREAM) if it does not already exist. consumer
// identifies this process within the group; each processor instance should
// use a distinct value so XAutoClaim can tell ownership apart.
func New(ctx context.Context, client *redis.Client, stream, consumer string, visibilityTimeout time.Duration) (*Queue, error) {
	if visibilityTimeout <= 0 {
		visibilityTimeout = DefaultVisibilityTimeout
	}
	const group = "catalogd"
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !errors.Is(err, redis.Nil) && !isBusyGroup(err) {
		return nil, fmt.Errorf("redisqueue: create consumer group: %w", err)
	}
	return &Queue{
		client:            client,
		stream:            stream,
		group:             group,
		consumer:          consumer,
		visibilityTimeout: visibilityTimeout,
	}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= len("BUSYGROUP") && err.Error()[:len("BUSYGROUP")] == "BUSYGROUP"
}

func (q *Queue) Enqueue(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{payloadField: data},
	}).Err()
}

func (q *Queue) DequeueMultiple(ctx context.Context, max int) ([]queue.Message, error) {
	claimed, err := q.reclaimStale(ctx, max)
	if err != nil {
		return nil, err
	}
	if len(claimed) >= max {
		return claimed, nil
	}

	fresh, err := q.readFresh(ctx, max-len(claimed))
	if err != nil {
		return nil, err
	}
	return append(claimed, fresh...), nil
}

// reclaimStale hands back PEL entries that have been idle at least
// visibilityTimeout — work an earlier consumer picked up and never
// acknowledged, whether it crashed or is merely still processing past its
// own deadline.
func (q *Queue) reclaimStale(ctx context.Context, max int) ([]queue.Message, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.visibilityTimeout,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisqueue: XAUTOCLAIM: %w", err)
	}
	return q.toMessages(ctx, msgs)
}

func (q *Queue) readFresh(ctx context.Context, max int) ([]queue.Message, error) {
	if max <= 0 {
		return nil, nil
	}
	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(max),
		Block:    -1, // -1: return immediately, never block (queue.Queue never blocks)
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisqueue: XREADGROUP: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	return q.toMessages(ctx, res[0].Messages)
}

func (q *Queue) toMessages(ctx context.Context, msgs []redis.XMessage) ([]queue.Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	counts, err := q.deliveryCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]queue.Message, 0, len(msgs))
	for _, m := range msgs {
		count := counts[m.ID]
		if count > queue.MaxDeliveries {
			// Redelivered past the limit: ack it away rather than hand it
			// to the caller again.
			q.client.XAck(ctx, q.stream, q.group, m.ID)
			continue
		}
		raw, ok := m.Values[payloadField]
		if !ok {
			q.client.XAck(ctx, q.stream, q.group, m.ID)
			continue
		}
		data, ok := raw.(string)
		if !ok {
			q.client.XAck(ctx, q.stream, q.group, m.ID)
			continue
		}
		out = append(out, queue.Message{
			Handle:       m.ID,
			Data:         json.RawMessage(data),
			DequeueCount: count,
		})
	}
	return out, nil
}

func (q *Queue) deliveryCounts(ctx context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		ext, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: q.stream,
			Group:  q.group,
			Start:  id,
			End:    id,
			Count:  1,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("redisqueue: XPENDING: %w", err)
		}
		count := 1
		if len(ext) > 0 {
			count = int(ext[0].RetryCount)
			if count < 1 {
				count = 1
			}
		}
		out[id] = count
	}
	return out, nil
}

func (q *Queue) Delete(ctx context.Context, handle string) error {
	return q.client.XAck(ctx, q.stream, q.group, handle).Err()
}
