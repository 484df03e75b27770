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

// Package metrics exposes Prometheus counters and histograms for the
// definition pipeline: the pieces that run unattended (queue processors,
// CDN flush loop) and are otherwise invisible between log lines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefinitionsComputedTotal counts completed recomputes, by outcome
// ("ok" or "error").
var DefinitionsComputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_definitions_computed_total",
	Help: "Total number of definition recomputes, by outcome.",
}, []string{"outcome"})

// DefinitionComputeDuration observes how long one recompute took.
var DefinitionComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "catalogd_definition_compute_duration_seconds",
	Help:    "Time to run one compute() pass through the pipeline.",
	Buckets: prometheus.DefBuckets,
})

// QueueMessagesProcessedTotal counts messages a queue worker has finished
// handling, by queue name and outcome.
var QueueMessagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_queue_messages_processed_total",
	Help: "Total number of queue messages processed, by queue and outcome.",
}, []string{"queue", "outcome"})

// QueueRedeliveriesTotal counts messages seen with dequeueCount > 1,
// surfacing consumers that are stalling or crashing mid-handle.
var QueueRedeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalogd_queue_redeliveries_total",
	Help: "Total number of queue messages observed with a dequeue count greater than one.",
}, []string{"queue"})

// CDNFlushDuration observes how long one invalidation flush took.
var CDNFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "catalogd_cdn_flush_duration_seconds",
	Help:    "Time to flush one batch of pending CDN invalidation tags.",
	Buckets: prometheus.DefBuckets,
})

// RecordDefinitionCompute records the outcome and duration of one
// recompute pass.
func RecordDefinitionCompute(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	DefinitionsComputedTotal.WithLabelValues(outcome).Inc()
	DefinitionComputeDuration.Observe(time.Since(start).Seconds())
}

// RecordQueueMessage records that a queue worker finished one message,
// and separately flags redeliveries (dequeueCount > 1).
func RecordQueueMessage(queue string, dequeueCount int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	QueueMessagesProcessedTotal.WithLabelValues(queue, outcome).Inc()
	if dequeueCount > 1 {
		QueueRedeliveriesTotal.WithLabelValues(queue).Inc()
	}
}

// RecordCDNFlush records how long a CDN flush batch took.
func RecordCDNFlush(start time.Time) {
	CDNFlushDuration.Observe(time.Since(start).Seconds())
}
