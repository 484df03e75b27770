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

package httpapi

import "github.com/clearlydefined/catalogd/pkg/crawler"

// Throttler decides whether a harvest request should be accepted (spec
// §6.1: "422 when the throttler rejects every entry"). Its internal policy
// is never described by the spec beyond that one sentence, so it is an
// external collaborator here — AllowAllThrottler is the only
// implementation this repo supplies; a deployment wanting real rate
// limiting plugs in its own.
type Throttler interface {
	Allow(req crawler.HarvestRequest) bool
}

// AllowAllThrottler never rejects a request.
type AllowAllThrottler struct{}

func (AllowAllThrottler) Allow(crawler.HarvestRequest) bool { return true }
