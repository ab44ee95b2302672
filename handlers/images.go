package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/storage"
)

type ImageUploader interface {
	UploadImage(ctx context.Context, slug, imageBase64, mimeType string) (*storage.Upload, error)
}

// RegisterImageRoutes mounts POST /api/images, which stores a base64 hero image and returns its key and URL.
func RegisterImageRoutes(r gin.IRouter, up ImageUploader, guard gin.HandlerFunc) {
	chain := []gin.HandlerFunc{}
	if guard != nil {
		chain = append(chain, guard)
	}
	r.POST("/api/images", append(chain, func(c *gin.Context) {
		var req struct {
			Slug        string `json:"slug"`
			ImageBase64 string `json:"imageBase64"`
			MIMEType    string `json:"mimeType"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !post.ValidSlug(req.Slug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slug"})
			return
		}
		if _, err := storage.DecodeImage(req.ImageBase64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := up.UploadImage(c.Request.Context(), req.Slug, req.ImageBase64, req.MIMEType)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	})...)
}
