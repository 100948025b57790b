// Package router assembles the gin engine: versioned API routes, webhook
// ingress, and the health endpoint.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers a handler's routes on a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	api        []RouteRegistrar
	webhooks   []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g. "v1")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterAPI adds a registrar for the versioned API group
func (r *Router) RegisterAPI(registrar RouteRegistrar) *Router {
	r.api = append(r.api, registrar)
	return r
}

// RegisterWebhooks adds a registrar for the unversioned webhook ingress.
// Platforms are configured with fixed callback URLs, so webhooks sit outside
// the versioned API.
func (r *Router) RegisterWebhooks(registrar RouteRegistrar) *Router {
	r.webhooks = append(r.webhooks, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.api {
		registrar.RegisterRoutes(api)
	}

	webhooks := r.engine.Group("/webhooks")
	for _, registrar := range r.webhooks {
		registrar.RegisterRoutes(webhooks)
	}
}
