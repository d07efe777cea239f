package httpapi

import (
	"evolutech-console/internal/auth"
	"evolutech-console/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Routes registers the operator dashboard and the customer portal.
func (h *Handlers) Routes(r gin.IRouter) {
	guards := h.Observers.Guards

	op := r.Group("")
	op.Use(auth.BrowserSession(h.Auth, auth.KindOperator))
	{
		op.GET(rbac.PathLogin, h.LoginPage)
		op.POST("/session/login", h.Login)

		loaded := op.Group("")
		loaded.Use(h.LoadOperator())
		{
			loaded.GET(rbac.PathRoot, h.Root)
			loaded.GET("/session", h.Session)
			loaded.POST("/session/logout", h.Logout)
			loaded.GET("/session/modules", h.Modules)
			loaded.POST("/session/modules/refresh", h.RefreshModules)

			for _, a := range []rbac.Area{rbac.AreaAdmin, rbac.AreaOperational, rbac.AreaCompanyDashboard, rbac.AreaSupport} {
				loaded.GET(a.Path, rbac.RequireAccess(a.Policy, guards), h.page(a.Name))
			}
			if h.Audit != nil {
				loaded.GET(rbac.AreaAdmin.Path+"/audit", rbac.RequireAccess(rbac.AreaAdmin.Policy, guards), h.AuditEvents)
			}

			app := loaded.Group(rbac.AreaCompanyApp.Path)
			app.Use(rbac.RequireAccess(rbac.AreaCompanyApp.Policy, guards))
			{
				app.GET("", h.page(rbac.AreaCompanyApp.Name))
				app.GET("/modules/:code", rbac.RequireModuleParam("code", guards), h.ModulePage)
			}
		}
	}

	portal := r.Group("/portal")
	portal.Use(auth.BrowserSession(h.Auth, auth.KindCustomer))
	{
		portal.POST("/login", h.PortalLogin)
		portal.POST("/register", h.PortalRegister)
		portal.POST("/logout", h.PortalLogout)
		portal.GET("/me", h.PortalMe)
	}
}
