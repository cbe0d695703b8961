package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"recipebox/internal/core/auth"
	resp "recipebox/internal/transport/http/response"
)

// Context keys set by AuthJWT.
const (
	CtxUserID = "userId"
	CtxRoles  = "roles"
	CtxClaims = "claims"
)

type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// AccessToken reads the bearer header first and falls back to the cookie.
func AccessToken(c *gin.Context, cookieName string) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

// AuthJWT rejects requests without a valid access token. Expired tokens get
// "token expired" so clients know a refresh is worth trying.
func AuthJWT(v TokenVerifier, cookieName, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := AccessToken(c, cookieName)
		if tok == "" {
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := v.VerifyAccess(tok)
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, err.Error())
			return
		}
		if requireRole != "" && !claims.HasRole(requireRole) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, claims.UID)
		c.Set(CtxRoles, claims.Roles)
		c.Next()
	}
}
