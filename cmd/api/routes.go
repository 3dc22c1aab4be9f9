package main

import (
	"voicedash/internal/httpapi"
	"voicedash/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// token issuance is public by definition
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// CALLS routes. Any authenticated role; visibility narrowing happens
		// inside the handler via the permission store.
		calls := v1.Group("/calls")
		calls.Use(rbac.RequireAnyRole(rbac.RoleViewer))
		{
			calls.GET("", h.ListCalls)
			calls.GET("/:id", h.GetCall)
		}

		// ADMIN routes: permission-mapping management.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAdmin())
		{
			admin.GET("/mappings", h.ListMappings)
			admin.GET("/mappings/:email", h.GetUserMappings)
			admin.POST("/mappings", h.AddMapping)
			admin.DELETE("/mappings", h.RemoveMapping)
		}
	}
}
