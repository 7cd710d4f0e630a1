package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/http/middleware"
)

var _ = Describe("middleware", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.Recovery(), middleware.Logger())
	})

	It("turns a panic into a 500 without details", func() {
		router.GET("/boom", func(*gin.Context) { panic("secret detail") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
	})

	Context("when a job route panics", func() {
		var logs bytes.Buffer

		BeforeEach(func() {
			logs.Reset()
			prev := slog.Default()
			slog.SetDefault(slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&logs, nil))))
			DeferCleanup(func() { slog.SetDefault(prev) })
		})

		It("logs the job id and route", func() {
			router.POST("/jobs/:id/tick", func(*gin.Context) { panic("nil queue item") })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/42/tick", nil))
			Expect(w.Code).To(Equal(http.StatusInternalServerError))

			var record map[string]any
			line, _, _ := bytes.Cut(logs.Bytes(), []byte("\n"))
			Expect(json.Unmarshal(line, &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("panic recovered"))
			Expect(record["job_id"]).To(BeNumerically("==", 42))
			Expect(record["route"]).To(Equal("/jobs/:id/tick"))
			Expect(record["component"]).To(Equal("poi.http"))
		})

		It("leaves the job id out on other routes", func() {
			router.GET("/boom", func(*gin.Context) { panic("boom") })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

			Expect(logs.String()).To(ContainSubstring("panic recovered"))
			Expect(logs.String()).NotTo(ContainSubstring("job_id"))
		})
	})

	It("tags the request context with the http component", func() {
		var component string
		router.GET("/ok", func(c *gin.Context) {
			component = logger.GetLogFields(c.Request.Context()).Component
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(component).To(Equal("poi.http"))
	})
})
