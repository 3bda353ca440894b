package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/noddit/config"
)

func TestRateLimitMiddleware(t *testing.T) {
	c := baseConfig
	c.RateLimitPerMinute = 2
	config.Set(c)
	t.Cleanup(func() { config.Set(baseConfig) })

	r := gin.New()
	r.GET("/a", RateLimitMiddleware("test-a"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/b", RateLimitMiddleware("test-b"), func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("/a", "10.1.1.1").Code)
	w := get("/a", "10.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":42901`)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get("/a", "10.1.1.2").Code, "buckets are per IP")
	assert.Equal(t, http.StatusOK, get("/b", "10.1.1.1").Code, "buckets are per scope")
}
