package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if TooLarge(err) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large", "declared length is refused up front")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too large"))
	req.ContentLength = -1
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, req).Code, "unknown length is cut off while reading")
}

func TestConcurrencyLimit_Busy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1, 10*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	done := make(chan int)
	go func() { done <- do(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code }()
	<-entered

	w := do(r, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(20*time.Millisecond, zap.NewNop()))
	r.GET("/stuck", func(c *gin.Context) { <-c.Request.Context().Done() })
	r.GET("/quick", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/stuck", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/quick", nil)).Code)
}

func TestRequestID_ReplacesUnsafe(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	for _, bad := range []string{"has space", "line\tbreak", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(KeyRequestID, bad)
		w := do(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEqual(t, bad, w.Body.String())
		assert.Len(t, w.Body.String(), 36, "a fresh uuid is minted")
	}
}
