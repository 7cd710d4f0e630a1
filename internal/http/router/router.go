package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/http/handler"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

type RouterConfig struct {
	Categories []string
	ListLimit  int32
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		jobHandler := handler.NewJobHandler(services.Jobs(), cfg.Categories, cfg.ListLimit)
		JobRouter(v1.Group("/jobs"), jobHandler)
	}
}
