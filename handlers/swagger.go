package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the pipeline service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>blogpipe API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "blogpipe", "version": "v1.0.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } } },
  "paths": {
    "/api/cron/auto-generate": {
      "post": { "summary": "Generate and publish the next queued topic", "security": [{"bearer": []}], "responses": { "200": { "description": "run result" }, "401": { "description": "unauthorized" }, "500": { "description": "run failed" } } }
    },
    "/api/cron/publish-social": {
      "post": { "summary": "Publish today's post to Instagram and Threads", "security": [{"bearer": []}], "responses": { "200": { "description": "run result" }, "401": { "description": "unauthorized" }, "500": { "description": "run failed" } } }
    },
    "/api/cron/today": {
      "get": { "summary": "Today's social handoff record", "security": [{"bearer": []}], "responses": { "200": { "description": "handoff" }, "404": { "description": "nothing scheduled" } } }
    },
    "/api/cron/runs": {
      "get": { "summary": "Recent job runs", "security": [{"bearer": []}], "parameters": [{"name":"limit","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "runs" } } }
    },
    "/api/cron/runs/{id}": {
      "get": { "summary": "One job run", "security": [{"bearer": []}], "responses": { "200": { "description": "run" }, "404": { "description": "not found" } } }
    },
    "/api/posts": {
      "get": { "summary": "List posts", "responses": { "200": { "description": "posts" } } }
    },
    "/api/posts/{slug}": {
      "get": { "summary": "Get a post", "responses": { "200": { "description": "post" }, "404": { "description": "not found" } } },
      "put": { "summary": "Create or replace a post", "security": [{"bearer": []}], "responses": { "200": { "description": "saved" }, "400": { "description": "invalid post" } } },
      "delete": { "summary": "Delete a post", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" } } }
    },
    "/api/posts/{slug}/social": {
      "get": { "summary": "Preview the derived Instagram caption and Threads chain", "responses": { "200": { "description": "preview" } } }
    },
    "/api/topics": {
      "get": { "summary": "List queued topics", "responses": { "200": { "description": "topics" } } },
      "put": { "summary": "Replace the topic queue", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"topics":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "topics" } } }
    },
    "/api/images": {
      "post": { "summary": "Upload a base64 hero image", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"slug":{"type":"string"},"imageBase64":{"type":"string"},"mimeType":{"type":"string"}}}}}}, "responses": { "200": { "description": "key and url" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
