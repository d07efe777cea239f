package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/auth"
	"evolutech-console/internal/modules"
	"evolutech-console/internal/rbac"
	"evolutech-console/internal/session"
	"evolutech-console/internal/tokens"
	"evolutech-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	keyOperatorSession = "operator_session"
	keyResolver        = "modules"
	keyNotices         = "notices"
)

type operatorStores struct {
	session  *session.Store
	resolver *modules.Resolver
	notices  *noticeBuffer
}

func (h *Handlers) openOperator(c *gin.Context) (operatorStores, error) {
	sid, err := auth.SessionID(c.Request.Context())
	if err != nil {
		return operatorStores{}, err
	}
	ts, err := h.Tokens(sid, tokens.OperatorKey)
	if err != nil {
		return operatorStores{}, err
	}

	log := logger.FromGin(c)
	me := &meOnce{src: h.Backend}
	notices := &noticeBuffer{}
	store := session.New(ts, me,
		session.WithLogger(log),
		session.WithNotifier(notices),
		session.WithObserver(h.Observers.Session),
	)
	resolver := modules.NewResolver(ts, me,
		modules.WithAliases(h.Aliases),
		modules.WithLogger(log),
		modules.WithObserver(h.Observers.Modules),
	)
	return operatorStores{session: store, resolver: resolver, notices: notices}, nil
}

// dropToken empties the slot of the browser session that is about to be rotated
// away, so an old cookie cannot outlive a re-login.
func (h *Handlers) dropToken(c *gin.Context, key string) error {
	sid, err := auth.SessionID(c.Request.Context())
	if errors.Is(err, auth.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	ts, err := h.Tokens(sid, key)
	if err != nil {
		return err
	}
	return ts.Delete(c.Request.Context())
}

// LoadOperator rehydrates the operator session from the browser session's token
// slot, resolves module entitlements and exposes both to the guards.
func (h *Handlers) LoadOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := h.openOperator(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		defer st.session.Close()

		ctx := c.Request.Context()
		if err := st.session.Mount(ctx); err != nil {
			logger.FromGin(c).ErrorContext(ctx, "session token store failed", "err", err)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		snap := st.session.Snapshot()
		// Without a token this settles to an empty set without a network call.
		st.resolver.Fetch(ctx)

		if snap.User != nil {
			c.Set("user_id", snap.User.ID)
			c.Set("role", string(snap.User.Role))
			c.Set("tenant_id", snap.User.TenantID)
		}
		c.Set(keyOperatorSession, st.session)
		c.Set(keyResolver, st.resolver)
		c.Set(keyNotices, st.notices)

		ctx = rbac.WithSubject(ctx, snap.Subject())
		ctx = rbac.WithModules(ctx, st.resolver)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func operatorFrom(c *gin.Context) (*session.Store, *modules.Resolver, *noticeBuffer) {
	s, _ := c.MustGet(keyOperatorSession).(*session.Store)
	r, _ := c.MustGet(keyResolver).(*modules.Resolver)
	n, _ := c.MustGet(keyNotices).(*noticeBuffer)
	return s, r, n
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	From     string `json:"from,omitempty"`
}

// Login verifies credentials with the backend, rotates the browser session and
// stores the issued token in the new slot.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.Backend.Login(ctx, req.Email, req.Password)
	if err != nil {
		backendError(c, err, "invalid credentials")
		return
	}

	if err := h.dropToken(c, tokens.OperatorKey); err != nil {
		logger.FromGin(c).ErrorContext(ctx, "previous token delete failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if err := auth.ClearBrowserSession(c, h.Auth, auth.KindOperator); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	st, err := h.openOperator(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	defer st.session.Close()

	if err := st.session.Login(ctx, resp.Token, resp.User, resp.Company); err != nil {
		if errors.Is(err, session.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend returned an incomplete session"})
			return
		}
		logger.FromGin(c).ErrorContext(ctx, "session login failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}

	redirect := st.session.RedirectPath()
	if safeReturnPath(req.From) {
		redirect = req.From
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  st.session.Snapshot(),
		"redirect": redirect,
	})
}

func (h *Handlers) Logout(c *gin.Context) {
	store, _, notices := operatorFrom(c)
	ctx := c.Request.Context()

	if err := store.Logout(ctx); err != nil {
		logger.FromGin(c).WarnContext(ctx, "token delete failed on logout", "err", err)
	}
	if err := auth.ClearBrowserSession(c, h.Auth, auth.KindOperator); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": rbac.PathLogin, "notices": notices.drain()})
}

func (h *Handlers) Session(c *gin.Context) {
	store, _, notices := operatorFrom(c)
	snap := store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session":  snap,
		"redirect": store.RedirectPath(),
		"unlinked": snap.Unlinked(),
		"notices":  notices.drain(),
	})
}

func (h *Handlers) Modules(c *gin.Context) {
	_, resolver, _ := operatorFrom(c)
	c.JSON(http.StatusOK, resolver.Snapshot())
}

func (h *Handlers) RefreshModules(c *gin.Context) {
	store, resolver, _ := operatorFrom(c)
	if !store.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, resolver.Refresh(c.Request.Context()))
}

// Root sends the visitor to wherever their role lands.
func (h *Handlers) Root(c *gin.Context) {
	store, _, _ := operatorFrom(c)
	if !store.IsAuthenticated() {
		c.Redirect(http.StatusFound, rbac.PathLogin)
		return
	}
	c.Redirect(http.StatusFound, store.RedirectPath())
}

// backendError maps an API client failure to a gateway response.
// Credential rejections keep the backend status; everything else is a bad gateway.
func backendError(c *gin.Context, err error, rejected string) {
	var se *apiclient.StatusError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": rejected})
	case errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500:
		msg := se.Message
		if msg == "" {
			msg = http.StatusText(se.StatusCode)
		}
		c.AbortWithStatusJSON(se.StatusCode, gin.H{"error": msg})
	default:
		logger.FromGin(c).WarnContext(c.Request.Context(), "backend call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	}
}

// safeReturnPath accepts only same-origin absolute paths for post-login return.
func safeReturnPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return p != rbac.PathLogin && !strings.HasPrefix(p, rbac.PathLogin+"?")
}
