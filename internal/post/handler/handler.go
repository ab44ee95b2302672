package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/post/service"
	"github.com/zcheck/blogpipe/internal/transform"
)

// RegisterPostRoutes mounts the content-store API. guard, when non-nil, protects writes.
func RegisterPostRoutes(r gin.IRouter, svc service.Service, siteURL string, guard gin.HandlerFunc) {
	writes := []gin.HandlerFunc{}
	if guard != nil {
		writes = append(writes, guard)
	}

	r.GET("/api/posts", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/api/posts/:slug", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	r.GET("/api/posts/:slug/social", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"slug":              p.Slug,
			"instagram_caption": transform.InstagramCaption(p),
			"threads_chain":     transform.ThreadsChain(p, post.URL(siteURL, p.Slug)),
		})
	})

	r.PUT("/api/posts/:slug", append(writes, func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := post.Decode(body, post.SourceRemote)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p.Slug = c.Param("slug")
		if err := svc.Upsert(c.Request.Context(), p); err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"slug": p.Slug, "updated_at": p.UpdatedAt})
	})...)

	r.DELETE("/api/posts/:slug", append(writes, func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("slug")); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})...)
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, post.ErrInvalidSlug), errors.Is(err, post.ErrMalformedSections):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
