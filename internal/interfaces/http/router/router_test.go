package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingRegistrar struct{ path string }

func (p *pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(p.path, func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestRouter_Setup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	NewRouter(engine).
		RegisterAPI(&pingRegistrar{path: "/movements"}).
		RegisterWebhooks(&pingRegistrar{path: "/shopify/:storeID"}).
		Setup()

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/movements", http.StatusOK},
		{"/webhooks/shopify/abc", http.StatusOK},
		{"/api/v2/movements", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}

func TestRouter_APIVersionOption(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	NewRouter(engine, WithAPIVersion("v2")).
		RegisterAPI(&pingRegistrar{path: "/movements"}).
		Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/movements", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
