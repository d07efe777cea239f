package httpapi

import (
	"context"
	"sync"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/audit"
	"evolutech-console/internal/auth"
	"evolutech-console/internal/modules"
	"evolutech-console/internal/rbac"
	"evolutech-console/internal/session"
	"evolutech-console/internal/tokens"
)

// Backend is the slice of the Evolutech API the gateway calls.
type Backend interface {
	Me(ctx context.Context, token string) (apiclient.MeResponse, error)
	Login(ctx context.Context, email, password string) (apiclient.LoginResponse, error)
	CustomerLogin(ctx context.Context, req apiclient.CustomerLoginRequest) (apiclient.CustomerAuthResponse, error)
	CustomerRegister(ctx context.Context, req apiclient.CustomerRegisterRequest) (apiclient.CustomerAuthResponse, error)
	CustomerMe(ctx context.Context, token string) (apiclient.CustomerMeResponse, error)
}

// TokenFactory opens the token slot of one browser session.
type TokenFactory func(sid, key string) (tokens.Store, error)

// Observers are optional; nil fields are skipped.
type Observers struct {
	Session session.Observer
	Modules modules.Observer
	Guards  rbac.DecisionObserver
}

// AuditLog is the read side of the audit trail, shown to super admins.
type AuditLog interface {
	Recent(ctx context.Context, f audit.Filter) ([]audit.Event, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: rehydrate the stores, call them, return JSON.
type Handlers struct {
	Backend   Backend
	Auth      *auth.Manager
	Tokens    TokenFactory
	Aliases   modules.AliasTable
	Observers Observers
	// Audit is optional; without it the audit route is not registered.
	Audit AuditLog
}

// meOnce shares one GET /auth/me between the session store and the module
// resolver within a request.
type meOnce struct {
	src interface {
		Me(ctx context.Context, token string) (apiclient.MeResponse, error)
	}

	mu    sync.Mutex
	done  bool
	token string
	resp  apiclient.MeResponse
	err   error
}

func (m *meOnce) Me(ctx context.Context, token string) (apiclient.MeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done && m.token == token {
		return m.resp, m.err
	}
	m.resp, m.err = m.src.Me(ctx, token)
	m.token = token
	m.done = true
	return m.resp, m.err
}
