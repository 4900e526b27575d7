/*
Package api
File: handlers.go
Description:
    HTTP surface of the companion: the current navigation state, the active
    route and the WebSocket stream. Everything is read-only; the engine is
    driven by the game connection, not by HTTP.
*/

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the status endpoints.
func NewRouter(status *Status, hub *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/state", handleGetState(status))
		api.GET("/route", handleGetRoute(status))
	}

	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c.Writer, c.Request)
	})
	return r
}

func handleGetState(status *Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, status.State())
	}
}

func handleGetRoute(status *Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := status.Route()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no route selected"})
			return
		}
		c.JSON(http.StatusOK, route)
	}
}

// corsMiddleware lets a UI served from another origin read the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
