package router

import (
	"github.com/gin-gonic/gin"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/http/handler"
)

func JobRouter(rg *gin.RouterGroup, h *handler.JobHandler) {
	rg.POST("", h.Start)
	rg.GET("", h.List)
	rg.GET("/params-schema", h.ParamsSchema)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/stats", h.Stats)
	rg.POST("/:id/tick", h.Tick)
	rg.POST("/:id/pause", h.Pause)
	rg.POST("/:id/resume", h.Resume)
}
