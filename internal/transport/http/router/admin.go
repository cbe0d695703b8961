package router

import (
	"github.com/gin-gonic/gin"

	"recipebox/internal/domain"
	"recipebox/internal/transport/http/ez"
	mdw "recipebox/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1; every route requires the admin role.
func NewAdminEngine(o Options, reg *Registry) *gin.Engine {
	o.defaults()
	r := newEngine(o)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(o.Verifier, o.CookieName, domain.RoleAdmin))

	reg.MountAdmin(ez.Routes{Public: admin, Authed: admin, Log: o.Log})
	return r
}
