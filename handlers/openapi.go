package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the gallery service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gallery-api — Swagger</title>
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

// Minimal OpenAPI document describing the public and admin endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gallery-api", "version": "v0.1.0" },
  "paths": {
    "/api/gallery/{category}": {
      "get": { "summary": "List visible images for a category", "parameters": [{"name":"category","in":"path","required":true,"schema":{"type":"string","enum":["portrait","landscape","bw"]}},{"name":"fresh","in":"query","schema":{"type":"boolean"}}], "responses": { "200": { "description": "category document" }, "400": { "description": "invalid category" } } }
    },
    "/api/gallery/{category}/featured": {
      "get": { "summary": "List featured visible images", "parameters": [{"name":"category","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "category document" } } }
    },
    "/api/admin/login": {
      "post": { "summary": "Exchange admin credentials for a bearer token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "token returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/api/admin/{category}": {
      "get": { "summary": "List all images (hidden included)", "responses": { "200": { "description": "category document" } } },
      "post": { "summary": "Add an image record", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"imageData":{"type":"object"}}}}}}, "responses": { "201": { "description": "record created" }, "400": { "description": "missing required fields" }, "503": { "description": "retries exhausted" } } }
    },
    "/api/admin/{category}/{id}": {
      "put": { "summary": "Update an image record", "responses": { "200": { "description": "record updated" }, "404": { "description": "image not found" } } },
      "delete": { "summary": "Delete an image record", "responses": { "200": { "description": "record deleted" }, "404": { "description": "image not found" } } }
    },
    "/api/admin/{category}/{id}/visibility": {
      "patch": { "summary": "Show or hide an image", "responses": { "200": { "description": "record updated" }, "404": { "description": "image not found" } } }
    },
    "/api/admin/{category}/{id}/featured": {
      "patch": { "summary": "Feature or unfeature an image", "responses": { "200": { "description": "record updated" }, "404": { "description": "image not found" } } }
    },
    "/api/admin/upload": {
      "post": { "summary": "Upload media and create its record", "responses": { "201": { "description": "record created" }, "400": { "description": "invalid upload" }, "502": { "description": "media storage failure" } } }
    }
  }
}`
