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

// Package queue defines the FIFO-with-visibility-timeout queue abstraction
// (spec §4.4, component C5): enqueue, dequeue-multiple with an opaque
// handle, delete-on-ack, and a dequeue count that drives redelivery limits.
package queue

import (
	"context"
	"encoding/json"
)

// MaxDeliveries is the most times a message is delivered, first delivery
// included, before a backend stops offering it (spec §4.4).
const MaxDeliveries = 5

// Message is one dequeued unit of work.
type Message struct {
	// Handle identifies this delivery for Delete; opaque to callers.
	Handle string
	// Data is the decoded JSON payload.
	Data json.RawMessage
	// DequeueCount is the number of times this message has been delivered,
	// including the current delivery (starts at 1).
	DequeueCount int
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// Queue is the abstract queue contract.
type Queue interface {
	// Enqueue writes payload (marshaled to JSON) onto the queue.
	Enqueue(ctx context.Context, payload any) error
	// DequeueMultiple returns up to max available messages. It never
	// blocks: an empty queue returns a zero-length slice, not an error.
	DequeueMultiple(ctx context.Context, max int) ([]Message, error)
	// Delete acknowledges handle, permanently removing that delivery.
	Delete(ctx context.Context, handle string) error
}
