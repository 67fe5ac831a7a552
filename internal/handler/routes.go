package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteOptions configures optional endpoints.
type RouteOptions struct {
	// MetricsPath and MetricsHandler expose Prometheus metrics when both are set.
	MetricsPath    string
	MetricsHandler http.Handler
}

// RegisterRoutes mounts the gateway API on r.
func RegisterRoutes(r gin.IRouter, h *ProxyHandler, opts RouteOptions) {
	r.GET("/", h.HandleStatus)

	v1 := r.Group("/v1")
	{
		v1.POST("/chat/completions", h.HandleChatCompletion)
		v1.POST("/embeddings", h.HandleEmbeddings)
		v1.POST("/provider/switch", h.HandleSwitchProvider)
		v1.GET("/models", h.HandleModels)
	}

	// Alias for clients that omit the version prefix.
	r.POST("/chat/completions", h.HandleChatCompletion)
	r.POST("/embeddings", h.HandleEmbeddings)

	if opts.MetricsPath != "" && opts.MetricsHandler != nil {
		r.GET(opts.MetricsPath, gin.WrapH(opts.MetricsHandler))
	}
}
