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

package definition

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clearlydefined/catalogd/pkg/aggregator"
	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/curation"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/harveststore"
	"github.com/clearlydefined/catalogd/pkg/model"
	"github.com/clearlydefined/catalogd/pkg/searchindex"
)

// jsonSummarizer decodes the raw harvest bytes as the Summary document
// directly, as if the tool already emitted the normalized shape.
type jsonSummarizer struct{}

func (jsonSummarizer) Summarize(_ context.Context, _ coordinates.ResultCoordinates, raw []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func newTestService(precedence PrecedenceTable) *Service {
	svc, err := New(
		Config{CurrentSchema: "1.0.0", Precedence: precedence},
		harveststore.New(harveststore.NewMemoryBackend()),
		jsonSummarizer{},
		curation.New(curation.NewMemoryRepository(), logr.Discard()),
		definitionstore.NewMemoryStore(),
		searchindex.NewMemoryIndex(),
		nil,
		nil,
		computelock.New(time.Minute),
		logr.Discard(),
	)
	Expect(err).NotTo(HaveOccurred())
	return svc
}

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		svc   *Service
		coord coordinates.EntityCoordinates
	)

	BeforeEach(func() {
		ctx = context.Background()
		coord = coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0"}
		svc = newTestService(PrecedenceTable{"": {{"scancode"}}})
	})

	Describe("Compute", func() {
		It("returns an empty definition when no tool has contributed", func() {
			def, err := svc.Compute(ctx, coord, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(model.IsEmptyDefinition(def)).To(BeTrue())
		})

		It("aggregates harvested tool output and scores the result", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"},"described":{"releaseDate":"2020-01-01"}}`))).To(Succeed())

			def, err := svc.Compute(ctx, coord, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(model.IsEmptyDefinition(def)).To(BeFalse())
			Expect(def.GetString("licensed.declared")).To(Equal("MIT"))
			Expect(def.GetString("_meta.schemaVersion")).To(Equal("1.0.0"))
		})
	})

	Describe("ComputeAndStore", func() {
		It("does not persist an empty definition", func() {
			def, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())
			Expect(model.IsEmptyDefinition(def)).To(BeTrue())

			_, ok, err := svc.GetStored(ctx, coord)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("persists a non-empty definition", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"}}`))).To(Succeed())

			_, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())

			stored, ok, err := svc.GetStored(ctx, coord)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(stored.GetString("licensed.declared")).To(Equal("MIT"))
		})
	})

	Describe("Get", func() {
		It("returns the stored definition on a hit without recomputing", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"}}`))).To(Succeed())
			_, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())

			// Mutate harvest after store; Get on a hit must not recompute.
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"GPL-2.0"}}`))).To(Succeed())

			def, err := svc.Get(ctx, coord, 0, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(def.GetString("licensed.declared")).To(Equal("MIT"))
		})

		It("recomputes on force=true", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"}}`))).To(Succeed())
			_, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"GPL-2.0"}}`))).To(Succeed())

			def, err := svc.Get(ctx, coord, 0, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(def.GetString("licensed.declared")).To(Equal("GPL-2.0"))
		})

		It("bypasses the store entirely for a PR-scoped request", func() {
			def, err := svc.Get(ctx, coord, 42, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(model.IsEmptyDefinition(def)).To(BeTrue())
			_, ok, err := svc.GetStored(ctx, coord)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		It("removes the stored definition", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"}}`))).To(Succeed())
			_, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Invalidate(ctx, []coordinates.EntityCoordinates{coord})).To(Succeed())

			_, ok, err := svc.GetStored(ctx, coord)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("ListAll", func() {
		It("unions coordinates present across the batch", func() {
			Expect(svc.harvest.Put(ctx, coordinates.ResultCoordinates{EntityCoordinates: coord, Tool: "scancode", ToolVersion: "3.2.2"},
				[]byte(`{"licensed":{"declared":"MIT"}}`))).To(Succeed())
			_, err := svc.ComputeAndStore(ctx, coord)
			Expect(err).NotTo(HaveOccurred())

			out, err := svc.ListAll(ctx, []coordinates.EntityCoordinates{coord})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
		})
	})
})

var _ = Describe("New", func() {
	It("rejects construction with no current schema version", func() {
		_, err := New(Config{}, harveststore.New(harveststore.NewMemoryBackend()), jsonSummarizer{},
			curation.New(curation.NewMemoryRepository(), logr.Discard()), definitionstore.NewMemoryStore(),
			searchindex.NewMemoryIndex(), nil, nil, computelock.New(time.Minute), logr.Discard())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("PrecedenceTable", func() {
	It("falls back to the default entry for an unmapped component type", func() {
		table := PrecedenceTable{"": {{"scancode"}}}
		Expect(table.forType("npm")).To(Equal([]aggregator.PrecedenceGroup{{"scancode"}}))
	})
})
