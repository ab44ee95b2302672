package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/pipeline"
	"github.com/zcheck/blogpipe/internal/runs"
)

// Jobs is the part of the pipeline the cron endpoints drive.
type Jobs interface {
	AutoGenerate(ctx context.Context) (*pipeline.GenerateResult, error)
	PublishSocial(ctx context.Context) (*pipeline.SocialResult, error)
	Today(ctx context.Context) (*pipeline.TodayData, error)
	Run(ctx context.Context, runID string) (*runs.Run, error)
	RecentRuns(ctx context.Context, limit int) ([]*runs.Run, error)
}

const defaultRunsLimit = 20

// RegisterCronRoutes mounts the scheduler triggers under /api/cron. Both GET and POST start a
// job because schedulers differ in which verb they send. Every route sits behind guard.
func RegisterCronRoutes(r gin.IRouter, jobs Jobs, guard gin.HandlerFunc) {
	g := r.Group("/api/cron")
	if guard != nil {
		g.Use(guard)
	}
	h := &cronHandler{jobs: jobs}
	g.GET("/auto-generate", h.AutoGenerate)
	g.POST("/auto-generate", h.AutoGenerate)
	g.GET("/publish-social", h.PublishSocial)
	g.POST("/publish-social", h.PublishSocial)
	g.GET("/today", h.Today)
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:id", h.GetRun)
}

type cronHandler struct {
	jobs Jobs
}

// AutoGenerate runs the generation job synchronously. A failed run answers 500 with the partial result.
func (h *cronHandler) AutoGenerate(c *gin.Context) {
	res, err := h.jobs.AutoGenerate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

func (h *cronHandler) PublishSocial(c *gin.Context) {
	res, err := h.jobs.PublishSocial(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// Today returns the handoff record publish-social will use.
func (h *cronHandler) Today(c *gin.Context) {
	d, err := h.jobs.Today(c.Request.Context())
	if errors.Is(err, kv.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no content scheduled"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *cronHandler) ListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	list, err := h.jobs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": list})
}

func (h *cronHandler) GetRun(c *gin.Context) {
	r, err := h.jobs.Run(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}
