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

package curation

import (
	"context"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clearlydefined/catalogd/pkg/coordinates"
	"github.com/clearlydefined/catalogd/pkg/model"
)

var _ = Describe("Curator", func() {
	var (
		ctx  context.Context
		repo *MemoryRepository
		c    *Curator
		coo  coordinates.EntityCoordinates
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMemoryRepository()
		c = New(repo, logr.Discard())
		coo = coordinates.EntityCoordinates{Type: "npm", Provider: "npmjs", Name: "left-pad", Revision: "1.0.0"}
	})

	Describe("Current", func() {
		It("returns an empty curation when none is recorded", func() {
			cur, err := c.Current(ctx, coo)
			Expect(err).NotTo(HaveOccurred())
			Expect(cur.Revisions).To(BeEmpty())
		})

		It("returns the merged curation once one has been written", func() {
			raw := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nrevisions:\n  1.0.0:\n    licensed:\n      declared: MIT\n"
			Expect(repo.WriteCurationFile(ctx, Path(coo), raw)).To(Succeed())

			cur, err := c.Current(ctx, coo)
			Expect(err).NotTo(HaveOccurred())
			patch, ok := cur.PatchFor("1.0.0")
			Expect(ok).To(BeTrue())
			Expect(patch.GetString("licensed.declared")).To(Equal("MIT"))
		})
	})

	Describe("OpenOrUpdate and ForPR", func() {
		It("makes a PR's proposed patch visible before it is merged", func() {
			raw := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nrevisions:\n  1.0.0:\n    licensed:\n      declared: MIT\n"
			repo.SeedPR(42, map[string]string{Path(coo): raw})

			Expect(c.OpenOrUpdate(ctx, 42, "abc123")).To(Succeed())

			cur, err := c.ForPR(ctx, coo, 42)
			Expect(err).NotTo(HaveOccurred())
			patch, ok := cur.PatchFor("1.0.0")
			Expect(ok).To(BeTrue())
			Expect(patch.GetString("licensed.declared")).To(Equal("MIT"))

			// Not yet merged: Current must still be empty.
			current, err := c.Current(ctx, coo)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Revisions).To(BeEmpty())
		})

		It("drops an invalid patch from the contribution instead of failing the whole update", func() {
			valid := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nrevisions:\n  1.0.0:\n    licensed:\n      declared: MIT\n"
			invalid := "coordinates:\n  type: npm\n  provider: npmjs\n  name: right-pad\nunexpected: true\n"
			repo.SeedPR(7, map[string]string{
				Path(coo): valid,
				"curations/npm/npmjs/right-pad.yaml": invalid,
			})

			Expect(c.OpenOrUpdate(ctx, 7, "def456")).To(Succeed())

			cur, err := c.ForPR(ctx, coo, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(cur.Revisions).NotTo(BeEmpty())
		})
	})

	Describe("Merge", func() {
		It("writes every patch through and reports the affected revisions", func() {
			raw := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nrevisions:\n  1.0.0:\n    licensed:\n      declared: MIT\n"
			repo.SeedPR(42, map[string]string{Path(coo): raw})
			Expect(c.OpenOrUpdate(ctx, 42, "abc123")).To(Succeed())

			affected, err := c.Merge(ctx, 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(affected).To(HaveLen(1))
			Expect(affected[0].Coordinates.Name).To(Equal("left-pad"))
			Expect(affected[0].Revision).To(Equal("1.0.0"))

			current, err := c.Current(ctx, coo)
			Expect(err).NotTo(HaveOccurred())
			patch, ok := current.PatchFor("1.0.0")
			Expect(ok).To(BeTrue())
			Expect(patch.GetString("licensed.declared")).To(Equal("MIT"))
		})

		It("is a no-op for an unknown PR", func() {
			affected, err := c.Merge(ctx, 999)
			Expect(err).NotTo(HaveOccurred())
			Expect(affected).To(BeEmpty())
		})
	})
})

var _ = Describe("Apply", func() {
	It("lets the curation patch win scalar conflicts", func() {
		def := model.Document{"licensed": model.Document{"declared": "GPL-2.0"}}
		patch := model.Document{"licensed": model.Document{"declared": "MIT"}}

		merged := Apply(def, patch)
		Expect(merged.GetString("licensed.declared")).To(Equal("MIT"))
	})
})

var _ = Describe("Validate", func() {
	It("rejects a curation with an empty declared-license patch via policy", func() {
		raw := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nrevisions:\n  1.0.0:\n    licensed:\n      declared: \"\"\n"
		_, err := Validate(context.Background(), raw)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a curation carrying an unexpected top-level property", func() {
		raw := "coordinates:\n  type: npm\n  provider: npmjs\n  name: left-pad\nunexpected: true\n"
		_, err := Validate(context.Background(), raw)
		Expect(err).To(HaveOccurred())
	})
})
