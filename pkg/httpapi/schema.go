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

import "github.com/getkin/kin-openapi/openapi3"

func falseSchemaPtr() *bool {
	f := false
	return &f
}

// harvestEntrySchema is one {tool, coordinates, policy?} object, additional
// properties forbidden (spec §6.1).
var harvestEntrySchema = func() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("tool", openapi3.NewStringSchema()).
		WithProperty("coordinates", openapi3.NewStringSchema()).
		WithProperty("policy", openapi3.NewStringSchema()).
		WithRequired([]string{"tool", "coordinates"})
	s.AdditionalProperties = openapi3.AdditionalProperties{Has: falseSchemaPtr()}
	return s
}()

// harvestRequestSchema validates the whole POST /harvest body: a non-empty
// array of harvestEntrySchema objects.
var harvestRequestSchema = func() *openapi3.Schema {
	s := openapi3.NewArraySchema().WithItems(harvestEntrySchema)
	s.MinItems = 1
	return s
}()
