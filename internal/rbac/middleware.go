package rbac

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// DecisionObserver receives every guard outcome (metrics, audit).
type DecisionObserver interface {
	GuardDecision(c *gin.Context, guard, outcome string)
}

type nopDecisionObserver struct{}

func (nopDecisionObserver) GuardDecision(*gin.Context, string, string) {}

// DecisionObservers fans one decision out to several observers in order.
type DecisionObservers []DecisionObserver

func (o DecisionObservers) GuardDecision(c *gin.Context, guard, outcome string) {
	for _, obs := range o {
		if obs != nil {
			obs.GuardDecision(c, guard, outcome)
		}
	}
}

func observerOrNop(o DecisionObserver) DecisionObserver {
	if o == nil {
		return nopDecisionObserver{}
	}
	return o
}

// RequireAccess applies the access guard to a route group.
// Rules:
// - loading suspends (503 + Retry-After), never redirects
// - signed out redirects to /login?from=<path>
// - wrong role redirects to the role's landing path, or "/" if that would loop
// - missing tenant on a tenant-scoped area renders a terminal 403 state
func RequireAccess(p Policy, obs DecisionObserver) gin.HandlerFunc {
	obs = observerOrNop(obs)
	return func(c *gin.Context) {
		s, err := SubjectFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not loaded"})
			return
		}

		path := c.Request.URL.Path
		d := DecideAccess(s, p, path)
		obs.GuardDecision(c, "access", string(d.Outcome))

		switch d.Outcome {
		case AccessLoading:
			suspend(c)
		case AccessLogin:
			c.Redirect(http.StatusFound, d.Target+"?from="+url.QueryEscape(d.From))
			c.Abort()
		case AccessRedirect:
			c.Redirect(http.StatusFound, d.Target)
			c.Abort()
		case AccessRestricted:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"state":   "restricted",
				"error":   "access restricted",
				"message": "Sua conta não está vinculada a uma empresa.",
				"actions": []Action{{ID: "back", Label: "Voltar"}},
			})
		default:
			c.Next()
		}
	}
}

// RequireModule gates a route on a module entitlement. Denial renders a card;
// it never redirects, so it cannot loop against RequireAccess.
func RequireModule(code string, obs DecisionObserver) gin.HandlerFunc {
	return requireModule(func(*gin.Context) string { return code }, obs)
}

// RequireModuleParam is RequireModule with the code taken from a path parameter.
func RequireModuleParam(param string, obs DecisionObserver) gin.HandlerFunc {
	return requireModule(func(c *gin.Context) string { return c.Param(param) }, obs)
}

func requireModule(code func(*gin.Context) string, obs DecisionObserver) gin.HandlerFunc {
	obs = observerOrNop(obs)
	return func(c *gin.Context) {
		s, _ := SubjectFrom(c.Request.Context())
		m, _ := ModulesFrom(c.Request.Context())

		d := DecideModule(s, m, code(c))
		obs.GuardDecision(c, "module", string(d.Outcome))

		switch d.Outcome {
		case ModuleLoading:
			suspend(c)
		case ModuleDenied:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"state":   "module_denied",
				"error":   "module not enabled",
				"module":  d.Module,
				"actions": d.Actions,
			})
		default:
			c.Next()
		}
	}
}

func suspend(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"state": "loading"})
}
