package engine_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/qualify"
)

var _ = Describe("request accounting over HTTP", func() {
	var (
		ctx       context.Context
		server    *httptest.Server
		hits      atomic.Int32
		p1Fails   atomic.Int32
		jobs      *memoryJobStore
		writer    *mockWriter
		exec      *engine.Executor
		stored    func() *model.Job
		totalHits func() int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		hits.Store(0)
		p1Fails.Store(1)

		mux := http.NewServeMux()
		mux.HandleFunc("/geocode/json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":43.73,"lng":7.42}}}]}`)
		})
		mux.HandleFunc("/v1/places:searchText", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"places":[{"id":"p1"},{"id":"p2"}]}`)
		})
		mux.HandleFunc("/v1/places/p1", func(w http.ResponseWriter, _ *http.Request) {
			if p1Fails.Add(-1) >= 0 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, `{"id":"p1","rating":4.8}`)
		})
		mux.HandleFunc("/v1/places/p2", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"id":"p2","rating":4.0}`)
		})
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			mux.ServeHTTP(w, r)
		}))
		DeferCleanup(server.Close)

		client := places.NewGoogleClient(config.PlacesConfig{
			APIKey:        "test-key",
			PlacesBaseURL: server.URL + "/v1",
			GeocodeURL:    server.URL + "/geocode/json",
			Timeout:       5 * time.Second,
			Retries:       2,
		}, places.WithRetryWait(time.Millisecond, 2*time.Millisecond))

		job := newTestJob(model.Params{Categories: []string{"dining"}, ResultCap: 2}, "Monaco")
		jobs = newMemoryJobStore(job)
		writer = &mockWriter{}
		exec = engine.NewExecutor(jobs, client, writer, qualify.DefaultRules(), testCatalog)
		stored = func() *model.Job { return jobs.jobs[jobID] }
		totalHits = func() int64 { return int64(hits.Load()) }
	})

	It("counts transport retries as requests", func() {
		res, err := exec.Tick(ctx, jobID, engine.Budget{MaxRequests: 10, MaxQueueItems: 3})
		Expect(err).NotTo(HaveOccurred())

		// geocode, search, p1 twice, p2
		Expect(totalHits()).To(Equal(int64(5)))
		Expect(res.RequestsUsed).To(Equal(5))
		Expect(stored().Progress.RequestsUsedTotal).To(Equal(totalHits()))
		Expect(stored().Progress.State).To(Equal(model.StateCompleted))
		Expect(writer.calls).To(HaveLen(1))
	})

	It("does not retry past the tick budget", func() {
		res, err := exec.Tick(ctx, jobID, engine.Budget{MaxRequests: 3, MaxQueueItems: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StopReason).To(Equal(engine.StopBudgetRequests))
		Expect(totalHits()).To(Equal(int64(3)))
		Expect(stored().Progress.RequestsUsedTotal).To(Equal(int64(3)))
		Expect(stored().Progress.Queue[0].DetailsDone).To(BeZero())

		_, err = exec.Tick(ctx, jobID, engine.Budget{MaxRequests: 3, MaxQueueItems: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(stored().Progress.State).To(Equal(model.StateCompleted))
		Expect(stored().Progress.RequestsUsedTotal).To(Equal(totalHits()))
	})
})
