package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the sync service.
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
    <title>ghichu Swagger</title>
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

// Minimal OpenAPI document describing the auth and note endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "ghichu", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Credentials": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}},
      "Tokens": {"type":"object","properties":{"accessToken":{"type":"string"},"refreshToken":{"type":"string"},"expiresIn":{"type":"integer"},"user":{"type":"object","properties":{"uid":{"type":"string"},"email":{"type":"string"}}}}},
      "Note": {"type":"object","properties":{"id":{"type":"string"},"title":{"type":"string"},"content":{"type":"string"},"createdAt":{"type":"string","format":"date-time"},"updatedAt":{"type":"string","format":"date-time"}}}
    }
  },
  "paths": {
    "/auth/signup": {
      "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Credentials"}}}}, "responses": { "201": { "description": "tokens returned" }, "400": { "description": "invalid email or weak password" }, "409": { "description": "email in use" } } }
    },
    "/auth/login": {
      "post": { "summary": "Sign in with email and password", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Credentials"}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate the refresh token and issue a new access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new token pair" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/auth/password-reset": {
      "post": { "summary": "Send a password reset code", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"}}}}}}, "responses": { "200": { "description": "code sent" }, "404": { "description": "unknown email" } } }
    },
    "/auth/password-reset/confirm": {
      "post": { "summary": "Set a new password with a reset code", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"token":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "password updated" }, "400": { "description": "invalid code" } } }
    },
    "/api/v1/notes": {
      "get": { "summary": "List notes, newest first; q filters by title or content", "parameters": [{"name":"q","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "notes" } } },
      "post": { "summary": "Create a note", "responses": { "201": { "description": "created id" } } }
    },
    "/api/v1/notes/watch": {
      "get": { "summary": "WebSocket stream of collection snapshots", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/api/v1/notes/{id}": {
      "get": { "summary": "Get a note", "responses": { "200": { "description": "note", "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Note"}}}}, "404": { "description": "not found" } } },
      "patch": { "summary": "Update title and/or content", "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a note", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/notes/{id}/watch": {
      "get": { "summary": "WebSocket stream of document snapshots", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
