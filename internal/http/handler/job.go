package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/http/dto"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

type JobHandler struct {
	jobService service.JobService
	categories []string
	listLimit  int32
}

func NewJobHandler(jobService service.JobService, categories []string, listLimit int32) *JobHandler {
	return &JobHandler{jobService: jobService, categories: categories, listLimit: listLimit}
}

func (h *JobHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobService.Start(ctx, req.ToService())
	if err != nil {
		h.writeError(c, err, "failed to start job")
		return
	}

	c.JSON(http.StatusCreated, dto.ToJobResponse(job))
}

func (h *JobHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var states []model.State
	if raw := c.Query("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			states = append(states, model.State(strings.TrimSpace(s)))
		}
	}

	limit := h.listLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(int32(n), h.listLimit)
	}

	jobs, err := h.jobService.List(ctx, states, limit)
	if err != nil {
		h.writeError(c, err, "failed to list jobs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": dto.ToJobList(jobs)})
}

func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := h.jobService.Get(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err, "failed to get job")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

func (h *JobHandler) Tick(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{JobID: logger.Ptr(jobID)})

	var req dto.TickRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.jobService.Tick(ctx, jobID, engine.Budget{
		MaxRequests:   req.MaxRequests,
		MaxQueueItems: req.MaxQueueItems,
	})
	if err != nil {
		if errors.Is(err, engine.ErrPersist) && result != nil {
			slog.ErrorContext(ctx, "tick progress not persisted", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "failed to persist progress",
				"result": dto.ToTickResponse(result),
			})
			return
		}
		h.writeError(c, err, "failed to run tick")
		return
	}

	c.JSON(http.StatusOK, dto.ToTickResponse(result))
}

func (h *JobHandler) Pause(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	var req dto.PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobService.Pause(c.Request.Context(), jobID, req.Reason)
	if err != nil {
		h.writeError(c, err, "failed to pause job")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

func (h *JobHandler) Resume(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := h.jobService.Resume(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err, "failed to resume job")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

func (h *JobHandler) Stats(c *gin.Context) {
	jobID, ok := parseJobID(c)
	if !ok {
		return
	}

	stats, err := h.jobService.Stats(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err, "failed to get job stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) ParamsSchema(c *gin.Context) {
	c.JSON(http.StatusOK, service.ParamsSchema(h.categories))
}

func parseJobID(c *gin.Context) (int64, bool) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return 0, false
	}
	return jobID, true
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and answered with msg only.
func (h *JobHandler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrJobBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "job is busy, retry later"})
	default:
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
