package model_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

var _ = Describe("Progress", func() {
	var (
		now   time.Time
		queue []model.QueueItem
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		queue = []model.QueueItem{
			{Name: "Monaco", Kind: model.LocationCity, RadiusKm: 25, Status: model.ItemDone},
			{Name: "French Riviera", Kind: model.LocationRegion, RadiusKm: 75},
		}
	})

	Describe("NewProgress", func() {
		It("starts running with zeroed counters and every item pending", func() {
			p := model.NewProgress(queue, "batch-1", now)

			Expect(p.State).To(Equal(model.StateRunning))
			Expect(p.Reason).To(BeEmpty())
			Expect(p.CurrentIndex).To(Equal(0))
			Expect(p.RequestsUsedTotal).To(BeZero())
			Expect(p.Batch.ID).To(Equal("batch-1"))
			Expect(p.Batch.StartedAt).To(Equal(now))
			Expect(p.Queue).To(HaveLen(2))
			for _, item := range p.Queue {
				Expect(item.Status).To(Equal(model.ItemPending))
				Expect(item.Stats).To(BeEmpty())
			}
			Expect(p.Queue[1].RadiusKm).To(Equal(75.0))
		})

		It("does not alias the caller's queue", func() {
			p := model.NewProgress(queue, "b", now)
			p.Queue[0].Name = "changed"
			Expect(queue[0].Name).To(Equal("Monaco"))
		})
	})

	Describe("state transitions", func() {
		var p model.Progress

		BeforeEach(func() {
			p = model.NewProgress(queue, "b", now)
		})

		DescribeTable("set state, reason and updated_at",
			func(apply func(*model.Progress, time.Time), state model.State, reason string) {
				later := now.Add(time.Minute)
				apply(&p, later)
				Expect(p.State).To(Equal(state))
				Expect(p.Reason).To(Equal(reason))
				Expect(p.UpdatedAt).To(Equal(later))
			},
			Entry("manual pause", func(p *model.Progress, t time.Time) { p.MarkPausedManual("operator", t) }, model.StatePausedManual, "operator"),
			Entry("budget pause", func(p *model.Progress, t time.Time) { p.MarkPausedBudget("quota exceeded", t) }, model.StatePausedBudget, "quota exceeded"),
			Entry("rate limit pause", func(p *model.Progress, t time.Time) { p.MarkPausedRateLimit("429", t) }, model.StatePausedRateLimit, "429"),
			Entry("failure", func(p *model.Progress, t time.Time) { p.MarkFailed("persist progress: boom", t) }, model.StateFailed, "persist progress: boom"),
			Entry("completion clears reason", func(p *model.Progress, t time.Time) {
				p.MarkPausedBudget("quota", t)
				p.MarkCompleted(t)
			}, model.StateCompleted, ""),
			Entry("resume clears reason", func(p *model.Progress, t time.Time) {
				p.MarkPausedManual("operator", t)
				p.MarkRunning(t)
			}, model.StateRunning, ""),
		)

		It("keeps the cursor when resuming", func() {
			p.Advance(now)
			p.MarkPausedBudget("quota", now)
			p.MarkRunning(now)
			Expect(p.CurrentIndex).To(Equal(1))
		})
	})

	Describe("BumpCounters", func() {
		It("adds to item stats and batch totals", func() {
			p := model.NewProgress(queue, "b", now)

			p.BumpCounters(0, "dining", model.Delta{Discovered: 3}, now)
			p.BumpCounters(0, "dining", model.Delta{DetailsFetched: 2, Upserted: 1}, now)
			p.BumpCounters(1, "dining", model.Delta{Discovered: 1}, now)
			p.BumpCounters(1, "spas", model.Delta{Discovered: 4}, now)

			Expect(p.Queue[0].Stats["dining"]).To(Equal(model.CategoryStats{Discovered: 3, DetailsFetched: 2, Upserted: 1}))
			Expect(p.Queue[1].Stats["spas"].Discovered).To(Equal(4))
			Expect(p.Batch.DiscoveredByCategory).To(Equal(map[string]int{"dining": 4, "spas": 4}))
			Expect(p.Batch.DetailsFetchedByCategory).To(Equal(map[string]int{"dining": 2}))
			Expect(p.Batch.UpsertedByCategory).To(Equal(map[string]int{"dining": 1}))
		})

		It("never decreases a counter", func() {
			p := model.NewProgress(queue, "b", now)
			p.BumpCounters(0, "dining", model.Delta{Discovered: 2}, now)
			p.BumpCounters(0, "dining", model.Delta{Discovered: -5}, now)

			Expect(p.Queue[0].Stats["dining"].Discovered).To(Equal(2))
			Expect(p.Batch.DiscoveredByCategory["dining"]).To(Equal(2))
		})

		It("still counts batch totals for an out-of-range index", func() {
			p := model.NewProgress(queue, "b", now)
			p.BumpCounters(9, "dining", model.Delta{Upserted: 1}, now)
			Expect(p.Batch.UpsertedByCategory["dining"]).To(Equal(1))
		})

		It("initializes maps lost by a zero-value decode", func() {
			var p model.Progress
			p.Queue = []model.QueueItem{{Name: "Nice"}}
			p.BumpCounters(0, "dining", model.Delta{Discovered: 1}, now)
			Expect(p.Queue[0].Stats["dining"].Discovered).To(Equal(1))
			Expect(p.Batch.DiscoveredByCategory["dining"]).To(Equal(1))
		})
	})

	Describe("cursor", func() {
		It("never advances past the queue length", func() {
			p := model.NewProgress(queue, "b", now)
			for range 5 {
				p.Advance(now)
			}
			Expect(p.CurrentIndex).To(Equal(2))
			Expect(p.Exhausted()).To(BeTrue())
			Expect(p.Current()).To(BeNil())
		})

		It("returns a pointer into the queue", func() {
			p := model.NewProgress(queue, "b", now)
			p.Current().Status = model.ItemRunning
			Expect(p.Queue[0].Status).To(Equal(model.ItemRunning))
		})
	})

	Describe("AddRequests", func() {
		It("ignores non-positive values", func() {
			p := model.NewProgress(queue, "b", now)
			p.AddRequests(3)
			p.AddRequests(0)
			p.AddRequests(-1)
			Expect(p.RequestsUsedTotal).To(Equal(int64(3)))
		})
	})

	Describe("Clone", func() {
		It("deep copies queue stats and batch maps", func() {
			p := model.NewProgress(queue, "b", now)
			p.BumpCounters(0, "dining", model.Delta{Discovered: 1}, now)

			c := p.Clone()
			c.BumpCounters(0, "dining", model.Delta{Discovered: 1}, now)
			c.Queue[1].Status = model.ItemFailed

			Expect(p.Queue[0].Stats["dining"].Discovered).To(Equal(1))
			Expect(p.Batch.DiscoveredByCategory["dining"]).To(Equal(1))
			Expect(p.Queue[1].Status).To(Equal(model.ItemPending))
		})

		It("deep copies the item checkpoint", func() {
			p := model.NewProgress(queue, "b", now)
			p.Queue[1].Center = &model.LatLng{Lat: 43.7, Lng: 7.2}
			p.Queue[1].Candidates = []model.Candidate{{PlaceID: "p1", Categories: []string{"dining"}}}

			c := p.Clone()
			c.Queue[1].Center.Lat = 0
			c.Queue[1].Candidates[0].Categories[0] = "spas"

			Expect(p.Queue[1].Center.Lat).To(Equal(43.7))
			Expect(p.Queue[1].Candidates[0].Categories).To(Equal([]string{"dining"}))
		})
	})

	Describe("QueueItem checkpoint", func() {
		It("counts candidates per category", func() {
			item := model.QueueItem{Candidates: []model.Candidate{
				{PlaceID: "a", Categories: []string{"dining", "nightlife"}},
				{PlaceID: "b", Categories: []string{"dining"}},
			}}
			Expect(item.CandidateCount("dining")).To(Equal(2))
			Expect(item.CandidateCount("nightlife")).To(Equal(1))
			Expect(item.CandidateCount("spas")).To(BeZero())
		})

		It("clears back to a fresh start", func() {
			item := model.QueueItem{
				Name:         "Monaco",
				Status:       model.ItemRunning,
				Center:       &model.LatLng{Lat: 1, Lng: 2},
				SearchesDone: 2,
				Discovered:   true,
				Candidates:   []model.Candidate{{PlaceID: "a"}},
				DetailsDone:  1,
			}
			item.ClearCheckpoint()
			Expect(item).To(Equal(model.QueueItem{Name: "Monaco", Status: model.ItemRunning}))
		})
	})

	Describe("Summary", func() {
		It("counts items by status", func() {
			p := model.NewProgress(queue, "b", now)
			p.Queue[0].Status = model.ItemDone
			p.Queue[1].Status = model.ItemRunning

			Expect(p.Summary()).To(Equal(model.Summary{Total: 2, Done: 1, Running: 1}))
		})
	})

	Describe("JSON encoding", func() {
		It("uses the persisted field names", func() {
			p := model.NewProgress(queue, "b", now)
			raw, err := json.Marshal(p)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKey("requests_used_total"))
			Expect(decoded).To(HaveKey("current_index"))
			Expect(decoded["batch"]).To(HaveKey("discovered_by_category"))
			Expect(decoded["batch"]).To(HaveKey("batch_id"))
			Expect(decoded).NotTo(HaveKey("reason"))
		})
	})
})

var _ = Describe("State", func() {
	DescribeTable("classification",
		func(s model.State, terminal, paused, accepts bool) {
			Expect(s.IsTerminal()).To(Equal(terminal))
			Expect(s.IsPaused()).To(Equal(paused))
			Expect(s.AcceptsTicks()).To(Equal(accepts))
			Expect(s.Valid()).To(BeTrue())
		},
		Entry("running", model.StateRunning, false, false, true),
		Entry("paused_manual", model.StatePausedManual, false, true, false),
		Entry("paused_budget", model.StatePausedBudget, false, true, false),
		Entry("paused_rate_limit", model.StatePausedRateLimit, false, true, true),
		Entry("completed", model.StateCompleted, true, false, false),
		Entry("failed", model.StateFailed, true, false, false),
	)

	It("rejects unknown states", func() {
		Expect(model.State("archived").Valid()).To(BeFalse())
	})
})

var _ = Describe("Params", func() {
	DescribeTable("PerCategoryCap rounds up",
		func(resultCap, categories, expected int) {
			p := model.Params{ResultCap: resultCap, Categories: make([]string, categories)}
			Expect(p.PerCategoryCap()).To(Equal(expected))
		},
		Entry("even split", 20, 2, 10),
		Entry("uneven split", 10, 3, 4),
		Entry("more categories than results", 2, 5, 1),
		Entry("no categories", 10, 0, 0),
		Entry("zero cap", 0, 3, 0),
	)

	It("picks the radius by location kind", func() {
		p := model.Params{CityRadiusKm: 25, RegionRadiusKm: 75}
		Expect(p.RadiusFor(model.LocationCity)).To(Equal(25.0))
		Expect(p.RadiusFor(model.LocationRegion)).To(Equal(75.0))
	})
})
