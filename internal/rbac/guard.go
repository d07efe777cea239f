package rbac

import "strings"

// Subject is what a guard needs to know about the current session.
type Subject struct {
	Loading       bool
	Authenticated bool
	Role          Role
	TenantID      string
}

// Policy describes who may enter a protected subtree.
type Policy struct {
	Roles         []Role
	RequireTenant bool
}

type AccessOutcome string

const (
	AccessLoading    AccessOutcome = "loading"
	AccessLogin      AccessOutcome = "login"
	AccessRedirect   AccessOutcome = "redirect"
	AccessRestricted AccessOutcome = "restricted"
	AccessAllow      AccessOutcome = "allow"
)

type AccessDecision struct {
	Outcome AccessOutcome
	// Target is set for AccessLogin and AccessRedirect.
	Target string
	// From carries the originating location on AccessLogin.
	From string
}

// DecideAccess evaluates the access guard in fixed priority order. It is pure and
// keeps no memory of earlier denials.
func DecideAccess(s Subject, p Policy, currentPath string) AccessDecision {
	if s.Loading {
		return AccessDecision{Outcome: AccessLoading}
	}
	if !s.Authenticated {
		return AccessDecision{Outcome: AccessLogin, Target: PathLogin, From: currentPath}
	}
	if !Contains(p.Roles, s.Role) {
		target := LandingPath(s.Role)
		if samePath(target, currentPath) {
			target = PathRoot
		}
		return AccessDecision{Outcome: AccessRedirect, Target: target}
	}
	if p.RequireTenant && s.TenantID == "" {
		return AccessDecision{Outcome: AccessRestricted}
	}
	return AccessDecision{Outcome: AccessAllow}
}

// ModuleChecker is satisfied by the entitlement resolver.
type ModuleChecker interface {
	Loading() bool
	HasModule(code string) bool
}

type ModuleOutcome string

const (
	ModuleLoading ModuleOutcome = "loading"
	ModuleAllow   ModuleOutcome = "allow"
	ModuleDenied  ModuleOutcome = "denied"
)

// Action is a recovery step offered on a denial screen.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path,omitempty"`
}

type ModuleDecision struct {
	Outcome ModuleOutcome
	Module  string
	Actions []Action
}

// DecideModule never redirects; a denial is a terminal card with two actions.
func DecideModule(s Subject, m ModuleChecker, code string) ModuleDecision {
	if m == nil {
		return deniedModule(s, code)
	}
	if m.Loading() {
		return ModuleDecision{Outcome: ModuleLoading, Module: code}
	}
	if m.HasModule(code) {
		return ModuleDecision{Outcome: ModuleAllow, Module: code}
	}
	return deniedModule(s, code)
}

func deniedModule(s Subject, code string) ModuleDecision {
	return ModuleDecision{
		Outcome: ModuleDenied,
		Module:  code,
		Actions: []Action{
			{ID: "dashboard", Label: "Voltar ao painel", Path: LandingPath(s.Role)},
			{ID: "support", Label: "Solicitar acesso", Path: PathSupport},
		},
	}
}

func samePath(a, b string) bool {
	return trimSlash(a) == trimSlash(b)
}

func trimSlash(p string) string {
	if p == "/" {
		return p
	}
	return strings.TrimRight(p, "/")
}
