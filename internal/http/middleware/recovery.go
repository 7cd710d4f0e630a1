package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
)

// Recovery turns a panic into a 500. Panics on /jobs/:id routes are logged
// with the job id so they line up with that job's tick logs.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := logger.LogFields{Component: "poi.http"}
				if jobID, perr := strconv.ParseInt(c.Param("id"), 10, 64); perr == nil {
					fields.JobID = &jobID
				}
				ctx := logger.WithLogFields(c.Request.Context(), fields)

				slog.ErrorContext(ctx, "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"route", c.FullPath(),
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
