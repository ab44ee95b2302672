package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zcheck/blogpipe/internal/topics"
)

// TopicQueue is the editable keyword queue.
type TopicQueue interface {
	List(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, list []string) error
}

// TopicPool lists the fixed topics that have no post yet.
type TopicPool interface {
	Remaining(ctx context.Context) ([]topics.Topic, error)
}

// RegisterTopicRoutes mounts the topic queue API. pool may be nil; writes sit behind guard.
func RegisterTopicRoutes(r gin.IRouter, queue TopicQueue, pool TopicPool, guard gin.HandlerFunc) {
	writes := []gin.HandlerFunc{}
	if guard != nil {
		writes = append(writes, guard)
	}

	r.GET("/api/topics", func(c *gin.Context) {
		list, err := queue.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": list})
	})

	// PUT replaces the queue with {topics: [...]}; blank entries are dropped.
	r.PUT("/api/topics", append(writes, func(c *gin.Context) {
		var req struct {
			Topics []string `json:"topics"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Topics == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topics is required"})
			return
		}
		ctx := c.Request.Context()
		if err := queue.Replace(ctx, req.Topics); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		list, err := queue.List(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": list, "count": len(list)})
	})...)

	if pool == nil {
		return
	}
	r.GET("/api/topics/pool", func(c *gin.Context) {
		left, err := pool.Remaining(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topics": left, "count": len(left)})
	})
}
