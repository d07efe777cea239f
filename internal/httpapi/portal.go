package httpapi

import (
	"net/http"
	"strings"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/auth"
	"evolutech-console/internal/customer"
	"evolutech-console/internal/tokens"
	"evolutech-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) openCustomer(c *gin.Context) (*customer.Store, error) {
	sid, err := auth.SessionID(c.Request.Context())
	if err != nil {
		return nil, err
	}
	ts, err := h.Tokens(sid, tokens.CustomerKey)
	if err != nil {
		return nil, err
	}
	return customer.New(ts, h.Backend, logger.FromGin(c)), nil
}

type portalLoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanySlug string `json:"company_slug"`
}

type portalRegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Password    string `json:"password"`
	CompanySlug string `json:"company_slug"`
}

func (h *Handlers) PortalLogin(c *gin.Context) {
	var req portalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.CompanySlug) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email, password and company_slug required"})
		return
	}

	resp, err := h.Backend.CustomerLogin(c.Request.Context(), apiclient.CustomerLoginRequest{
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		CompanySlug: strings.TrimSpace(req.CompanySlug),
	})
	if err != nil {
		backendError(c, err, "invalid credentials")
		return
	}
	h.startCustomerSession(c, resp)
}

func (h *Handlers) PortalRegister(c *gin.Context) {
	var req portalRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.CompanySlug) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name, email, password and company_slug required"})
		return
	}

	resp, err := h.Backend.CustomerRegister(c.Request.Context(), apiclient.CustomerRegisterRequest{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Password:    req.Password,
		CompanySlug: strings.TrimSpace(req.CompanySlug),
	})
	if err != nil {
		backendError(c, err, "registration rejected")
		return
	}
	h.startCustomerSession(c, resp)
}

func (h *Handlers) startCustomerSession(c *gin.Context, resp apiclient.CustomerAuthResponse) {
	if err := h.dropToken(c, tokens.CustomerKey); err != nil {
		logger.FromGin(c).ErrorContext(c.Request.Context(), "previous customer token delete failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if err := auth.ClearBrowserSession(c, h.Auth, auth.KindCustomer); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	store, err := h.openCustomer(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	defer store.Close()

	if err := store.Login(c.Request.Context(), resp.Token, resp.Customer); err != nil {
		logger.FromGin(c).WarnContext(c.Request.Context(), "customer login failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "customer session not established"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": store.Snapshot(), "redirect": customer.LandingPath})
}

func (h *Handlers) PortalLogout(c *gin.Context) {
	store, err := h.openCustomer(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	defer store.Close()

	if err := store.Logout(c.Request.Context()); err != nil {
		logger.FromGin(c).WarnContext(c.Request.Context(), "customer token delete failed", "err", err)
	}
	if err := auth.ClearBrowserSession(c, h.Auth, auth.KindCustomer); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": customer.LandingPath + "/login"})
}

func (h *Handlers) PortalMe(c *gin.Context) {
	store, err := h.openCustomer(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	defer store.Close()

	if err := store.Mount(c.Request.Context()); err != nil {
		logger.FromGin(c).ErrorContext(c.Request.Context(), "customer token store failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	snap := store.Snapshot()
	if !snap.IsAuthenticated {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated", "redirect": customer.LandingPath + "/login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snap})
}
