package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// page renders a dashboard area descriptor once the guards have let the request through.
func (h *Handlers) page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, resolver, _ := operatorFrom(c)
		snap := store.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"page":    name,
			"user":    snap.User,
			"company": snap.Company,
			"modules": resolver.Snapshot().Codes,
		})
	}
}

// ModulePage is served only after RequireModuleParam granted the module.
func (h *Handlers) ModulePage(c *gin.Context) {
	store, _, _ := operatorFrom(c)
	snap := store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"page":    "module",
		"module":  c.Param("code"),
		"user":    snap.User,
		"company": snap.Company,
	})
}

// LoginPage describes the sign-in screen; "from" is echoed back for the post-login return.
func (h *Handlers) LoginPage(c *gin.Context) {
	from := c.Query("from")
	if !safeReturnPath(from) {
		from = ""
	}
	c.JSON(http.StatusOK, gin.H{"page": "login", "from": from})
}
