package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName maps a session kind to its cookie.
func CookieName(kind Kind) string {
	if kind == KindCustomer {
		return "evolutech_portal"
	}
	return "evolutech_session"
}

// BrowserSession makes sure every request carries a valid session cookie of the given
// kind and injects its sid into the request context. A missing or invalid cookie is
// replaced with a fresh one; the new sid simply has no token behind it yet.
func BrowserSession(m *Manager, kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		name := CookieName(kind)

		var sid string
		if raw, err := c.Cookie(name); err == nil && raw != "" {
			if claims, err := m.Verify(raw, kind, now); err == nil {
				sid = claims.SessionID
			}
		}
		if sid == "" {
			newSID, tok, err := m.IssueSession(now, kind)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
				return
			}
			sid = newSID
			m.setCookie(c, name, tok)
		}

		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sid, kind))
		c.Set("session_id", sid)
		c.Next()
	}
}

// ClearBrowserSession rotates the cookie so the previous sid is never reused.
func ClearBrowserSession(c *gin.Context, m *Manager, kind Kind) error {
	sid, tok, err := m.IssueSession(time.Now(), kind)
	if err != nil {
		return err
	}
	m.setCookie(c, CookieName(kind), tok)
	c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sid, kind))
	c.Set("session_id", sid)
	return nil
}

func (m *Manager) setCookie(c *gin.Context, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(m.ttl.Seconds()), "/", "", m.secure, true)
}
