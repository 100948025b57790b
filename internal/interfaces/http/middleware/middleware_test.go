package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	engine := newTestEngine()
	engine.Use(RequestID())

	var seen string
	engine.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestID_HonorsCallerID(t *testing.T) {
	engine := newTestEngine()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "caller-supplied", w.Header().Get(RequestIDHeader))
}

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	engine := newTestEngine()
	engine.Use(BodyLimit(16))
	engine.POST("/in", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/in", strings.NewReader(strings.Repeat("x", 64)))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	engine := newTestEngine()
	engine.Use(BodyLimit(1024))
	engine.POST("/in", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/in", strings.NewReader("ok"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
