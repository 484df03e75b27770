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

package log

import "time"

// Fields is a fluent builder for structured log key/value pairs, passed to
// logr's WithValues as alternating key, value pairs via KVList.
type Fields map[string]any

// NewFields starts an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component records which package/subsystem emitted the entry.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation records the high-level action being performed.
func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

// Resource records the type and, when known, the name of the entity acted on.
func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Coordinates records the canonical string form of an entity coordinate.
func (f Fields) Coordinates(coords string) Fields {
	if coords != "" {
		f["coordinates"] = coords
	}
	return f
}

// Duration records an elapsed time in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error records err.Error() when err is non-nil.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// RequestID records a correlation id for the in-flight request or message.
func (f Fields) RequestID(id string) Fields {
	if id != "" {
		f["request_id"] = id
	}
	return f
}

// KVList flattens the field set into logr's alternating key/value form.
func (f Fields) KVList() []any {
	kv := make([]any, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}
