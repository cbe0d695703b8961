package handler

import (
	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	mdw "recipebox/internal/transport/http/middleware"
)

// chain drops nil middlewares so optional limiters can be passed unconditionally.
func chain(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// bindOptionalJSON binds the body when there is one; an empty body leaves in zeroed.
func bindOptionalJSON(c *gin.Context, in any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(in); err != nil {
		if mdw.TooLarge(err) {
			return domain.Validation("request body too large")
		}
		return domain.Validation("invalid request body")
	}
	return nil
}

type message struct {
	Message string `json:"message"`
}
