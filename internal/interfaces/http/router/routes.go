package router

import (
	"github.com/coagronet/console/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the console endpoints mounted by Console.
type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Context  *handler.ContextHandler
	Resource *handler.ResourceHandler
	Cascade  *handler.CascadeHandler
	Report   *handler.ReportHandler
}

// Console registers the console route groups on r. credentialLimit guards
// the endpoints that take credentials or one-time tokens; nil disables it.
func Console(r *Router, h Handlers, credentialLimit gin.HandlerFunc) *Router {
	authRoutes := NewDomainGroup("/auth")
	authRoutes.POST("/logout", h.Auth.Logout)
	credentials := authRoutes.Group("")
	if credentialLimit != nil {
		credentials.Use(credentialLimit)
	}
	credentials.POST("/login", h.Auth.Login).
		GET("/verify", h.Auth.Verify).
		POST("/forgot-password", h.Auth.ForgotPassword).
		POST("/change-password", h.Auth.ChangePassword)

	sessionRoutes := NewDomainGroup("")
	sessionRoutes.GET("/session", h.Session.Session).
		PUT("/preferences", h.Session.SetPreferences)
	sessionRoutes.Group("/navigation").
		GET("/resolve", h.Session.Resolve).
		PUT("/active-module", h.Session.SetActiveModule)

	contextRoutes := NewDomainGroup("/context")
	contextRoutes.GET("/options", h.Context.Options).
		POST("/switch", h.Context.Switch)

	resourceRoutes := NewDomainGroup("/resources")
	resourceRoutes.GET("/:resource", h.Resource.List).
		POST("/:resource", h.Resource.Create).
		PUT("/:resource/:id", h.Resource.Update).
		DELETE("/:resource/:id", h.Resource.Delete)

	cascadeRoutes := NewDomainGroup("/cascades")
	cascadeRoutes.GET("/:chain", h.Cascade.State).
		POST("/:chain/select", h.Cascade.Select).
		POST("/:chain/clear", h.Cascade.Clear)

	// Report names may contain "/", hence the wildcards.
	reportRoutes := NewDomainGroup("/reports")
	reportRoutes.POST("/*report", h.Report.Render).
		GET("/download/*key", h.Report.Download)

	return r.Register(authRoutes).
		Register(sessionRoutes).
		Register(contextRoutes).
		Register(resourceRoutes).
		Register(cascadeRoutes).
		Register(reportRoutes)
}
