package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "recipebox/internal/transport/http/response"
)

// MaxBodyBytes caps request bodies at n bytes. A declared Content-Length over
// the cap is refused before any handler runs; a chunked body is cut off at the
// cap and the read fails with an error TooLarge recognizes.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, resp.CodeTooLarge, "request body too large")
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// TooLarge reports whether err comes from reading past MaxBodyBytes.
func TooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
