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

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDefinitionComputeTracksOutcome(t *testing.T) {
	before := testutil.ToFloat64(DefinitionsComputedTotal.WithLabelValues("ok"))
	RecordDefinitionCompute(time.Now(), nil)
	after := testutil.ToFloat64(DefinitionsComputedTotal.WithLabelValues("ok"))
	if after != before+1 {
		t.Fatalf("ok counter = %v, want %v", after, before+1)
	}

	before = testutil.ToFloat64(DefinitionsComputedTotal.WithLabelValues("error"))
	RecordDefinitionCompute(time.Now(), errors.New("boom"))
	after = testutil.ToFloat64(DefinitionsComputedTotal.WithLabelValues("error"))
	if after != before+1 {
		t.Fatalf("error counter = %v, want %v", after, before+1)
	}
}

func TestRecordQueueMessageFlagsRedeliveries(t *testing.T) {
	beforeRedeliveries := testutil.ToFloat64(QueueRedeliveriesTotal.WithLabelValues("harvest"))
	RecordQueueMessage("harvest", 1, nil)
	afterRedeliveries := testutil.ToFloat64(QueueRedeliveriesTotal.WithLabelValues("harvest"))
	if afterRedeliveries != beforeRedeliveries {
		t.Fatalf("first delivery should not count as a redelivery: before=%v after=%v", beforeRedeliveries, afterRedeliveries)
	}

	RecordQueueMessage("harvest", 2, nil)
	afterSecond := testutil.ToFloat64(QueueRedeliveriesTotal.WithLabelValues("harvest"))
	if afterSecond != beforeRedeliveries+1 {
		t.Fatalf("redelivery counter = %v, want %v", afterSecond, beforeRedeliveries+1)
	}
}
