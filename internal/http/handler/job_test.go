package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/http/handler"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

var _ = Describe("JobHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
	)

	BeforeEach(func() {
		router = gin.New()
		svc = &mockJobService{}
		h := handler.NewJobHandler(svc, []string{"dining", "spas"}, 50)
		router.POST("/jobs", h.Start)
		router.GET("/jobs", h.List)
		router.GET("/jobs/params-schema", h.ParamsSchema)
		router.GET("/jobs/:id", h.Get)
		router.GET("/jobs/:id/stats", h.Stats)
		router.POST("/jobs/:id/tick", h.Tick)
		router.POST("/jobs/:id/pause", h.Pause)
		router.POST("/jobs/:id/resume", h.Resume)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	sampleJob := func(state model.State) *model.Job {
		p := model.NewProgress([]model.QueueItem{{Name: "Monaco", Kind: model.LocationCity, RadiusKm: 25}}, "batch", time.Now())
		p.State = state
		return &model.Job{ID: 1234567890123, Status: state, Params: model.Params{Categories: []string{"dining"}, ResultCap: 20}, Progress: p}
	}

	Describe("POST /jobs", func() {
		It("returns 201 with the new job", func() {
			svc.startFn = func(_ context.Context, req service.StartRequest) (*model.Job, error) {
				Expect(req.Locations).To(HaveLen(2))
				Expect(req.Locations[1].Kind).To(Equal(model.LocationRegion))
				Expect(req.Categories).To(Equal([]string{"dining"}))
				return sampleJob(model.StateRunning), nil
			}

			w := do(http.MethodPost, "/jobs", `{"locations":[{"name":"Monaco"},{"name":"Tuscany","kind":"region"}],"categories":["dining"]}`)

			Expect(w.Code).To(Equal(http.StatusCreated))
			resp := decode(w)
			Expect(resp["id"]).To(Equal("1234567890123"))
			Expect(resp["status"]).To(Equal("running"))
			progress := resp["progress"].(map[string]any)
			Expect(progress).To(HaveKeyWithValue("current_index", BeNumerically("==", 0)))
			Expect(progress).To(HaveKey("requests_used_total"))
		})

		DescribeTable("returns 400 on a bad body",
			func(body string) {
				w := do(http.MethodPost, "/jobs", body)
				Expect(w.Code).To(Equal(http.StatusBadRequest))
			},
			Entry("malformed", `{`),
			Entry("no locations", `{"categories":["dining"]}`),
			Entry("bad kind", `{"locations":[{"name":"X","kind":"planet"}],"categories":["dining"]}`),
		)

		It("returns 400 when the service rejects the request", func() {
			svc.startFn = func(context.Context, service.StartRequest) (*model.Job, error) {
				return nil, fmt.Errorf("%w: unknown category %q", service.ErrInvalidRequest, "casinos")
			}
			w := do(http.MethodPost, "/jobs", `{"locations":[{"name":"Nice"}],"categories":["casinos"]}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["error"]).To(ContainSubstring("casinos"))
		})

		It("does not leak internal errors", func() {
			svc.startFn = func(context.Context, service.StartRequest) (*model.Job, error) {
				return nil, errors.New("pq: password authentication failed")
			}
			w := do(http.MethodPost, "/jobs", `{"locations":[{"name":"Nice"}],"categories":["dining"]}`)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("password"))
		})
	})

	Describe("POST /jobs/:id/tick", func() {
		It("runs a tick with default budget when the body is empty", func() {
			svc.tickFn = func(_ context.Context, jobID int64, budget engine.Budget) (*engine.TickResult, error) {
				Expect(jobID).To(Equal(int64(42)))
				Expect(budget).To(Equal(engine.Budget{}))
				return &engine.TickResult{JobID: 42, RequestsUsed: 7, Upserted: 2, StopReason: engine.StopBudgetRequests, Duration: 1500 * time.Millisecond}, nil
			}

			w := do(http.MethodPost, "/jobs/42/tick", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["requests_used"]).To(BeNumerically("==", 7))
			Expect(resp["stop_reason"]).To(Equal("budget_requests"))
			Expect(resp["duration_ms"]).To(BeNumerically("==", 1500))
		})

		It("passes an explicit budget", func() {
			svc.tickFn = func(_ context.Context, _ int64, budget engine.Budget) (*engine.TickResult, error) {
				Expect(budget).To(Equal(engine.Budget{MaxRequests: 2, MaxQueueItems: 1}))
				return &engine.TickResult{}, nil
			}
			w := do(http.MethodPost, "/jobs/42/tick", `{"max_requests":2,"max_queue_items":1}`)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns the failed progress with a 500 when persisting failed", func() {
			svc.tickFn = func(context.Context, int64, engine.Budget) (*engine.TickResult, error) {
				return &engine.TickResult{Progress: model.Progress{State: model.StateFailed}}, fmt.Errorf("%w: conn reset", engine.ErrPersist)
			}
			w := do(http.MethodPost, "/jobs/42/tick", "")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			result := decode(w)["result"].(map[string]any)
			Expect(result["progress"].(map[string]any)["state"]).To(Equal("failed"))
		})

		DescribeTable("maps service errors",
			func(err error, code int) {
				svc.tickFn = func(context.Context, int64, engine.Budget) (*engine.TickResult, error) { return nil, err }
				Expect(do(http.MethodPost, "/jobs/42/tick", "").Code).To(Equal(code))
			},
			Entry("not found", service.ErrJobNotFound, http.StatusNotFound),
			Entry("busy", service.ErrJobBusy, http.StatusConflict),
			Entry("other", errors.New("boom"), http.StatusInternalServerError),
		)

		It("rejects a non-numeric id", func() {
			Expect(do(http.MethodPost, "/jobs/abc/tick", "").Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("pause and resume", func() {
		It("pauses with a reason", func() {
			svc.pauseFn = func(_ context.Context, _ int64, reason string) (*model.Job, error) {
				Expect(reason).To(Equal("billing review"))
				return sampleJob(model.StatePausedManual), nil
			}
			w := do(http.MethodPost, "/jobs/1/pause", `{"reason":"billing review"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["status"]).To(Equal("paused_manual"))
		})

		It("returns 409 on an invalid transition", func() {
			svc.resumeFn = func(context.Context, int64) (*model.Job, error) {
				return nil, fmt.Errorf("%w: cannot resume a completed job", service.ErrInvalidTransition)
			}
			Expect(do(http.MethodPost, "/jobs/1/resume", "").Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("reads", func() {
		It("lists jobs filtered by state with the limit capped", func() {
			svc.listFn = func(_ context.Context, states []model.State, limit int32) ([]model.Job, error) {
				Expect(states).To(Equal([]model.State{model.StateRunning, model.StatePausedRateLimit}))
				Expect(limit).To(Equal(int32(50)))
				return []model.Job{*sampleJob(model.StateRunning)}, nil
			}
			w := do(http.MethodGet, "/jobs?state=running,paused_rate_limit&limit=500", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			jobs := decode(w)["jobs"].([]any)
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].(map[string]any)).NotTo(HaveKey("queue"))
		})

		It("returns 404 for an unknown job", func() {
			svc.getFn = func(context.Context, int64) (*model.Job, error) { return nil, service.ErrJobNotFound }
			Expect(do(http.MethodGet, "/jobs/9", "").Code).To(Equal(http.StatusNotFound))
		})

		It("serves stats", func() {
			svc.statsFn = func(context.Context, int64) (*service.JobStats, error) {
				return &service.JobStats{JobID: 9, State: model.StateCompleted, POIs: model.JobPOIStats{Total: 3}}, nil
			}
			w := do(http.MethodGet, "/jobs/9/stats", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["pois"].(map[string]any)["total"]).To(BeNumerically("==", 3))
		})

		It("serves the params schema", func() {
			w := do(http.MethodGet, "/jobs/params-schema", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"locations"`))
			Expect(w.Body.String()).To(ContainSubstring(`"spas"`))
		})
	})
})
