package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/audit"
	"evolutech-console/internal/auth"
	"evolutech-console/internal/config"
	"evolutech-console/internal/modules"
	"evolutech-console/internal/tokens"

	"github.com/gin-gonic/gin"
)

type fakeBackend struct {
	mu       sync.Mutex
	meCalls  int
	me       map[string]apiclient.MeResponse
	logins   map[string]apiclient.LoginResponse
	customer map[string]apiclient.CustomerPayload
}

func (f *fakeBackend) Me(ctx context.Context, token string) (apiclient.MeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	resp, ok := f.me[token]
	if !ok {
		return apiclient.MeResponse{}, &apiclient.StatusError{Method: http.MethodGet, Path: "/auth/me", StatusCode: http.StatusUnauthorized}
	}
	return resp, nil
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (apiclient.LoginResponse, error) {
	resp, ok := f.logins[email]
	if !ok || password != "secret" {
		return apiclient.LoginResponse{}, &apiclient.StatusError{Method: http.MethodPost, Path: "/auth/login", StatusCode: http.StatusUnauthorized}
	}
	return resp, nil
}

func (f *fakeBackend) CustomerLogin(ctx context.Context, req apiclient.CustomerLoginRequest) (apiclient.CustomerAuthResponse, error) {
	c, ok := f.customer[req.Email]
	if !ok || req.Password != "secret" {
		return apiclient.CustomerAuthResponse{}, &apiclient.StatusError{Method: http.MethodPost, Path: "/customer-auth/login", StatusCode: http.StatusUnauthorized}
	}
	return apiclient.CustomerAuthResponse{Token: "ctok-" + c.ID, Customer: c}, nil
}

func (f *fakeBackend) CustomerRegister(ctx context.Context, req apiclient.CustomerRegisterRequest) (apiclient.CustomerAuthResponse, error) {
	c := apiclient.CustomerPayload{ID: "new-" + req.Email, Name: req.Name, Email: req.Email, CompanySlug: req.CompanySlug}
	f.mu.Lock()
	f.customer[req.Email] = c
	f.mu.Unlock()
	return apiclient.CustomerAuthResponse{Token: "ctok-" + c.ID, Customer: c}, nil
}

func (f *fakeBackend) CustomerMe(ctx context.Context, token string) (apiclient.CustomerMeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customer {
		if "ctok-"+c.ID == token {
			return apiclient.CustomerMeResponse{Customer: c}, nil
		}
	}
	return apiclient.CustomerMeResponse{}, &apiclient.StatusError{Method: http.MethodGet, Path: "/customer-auth/me", StatusCode: http.StatusUnauthorized}
}

type memoryTokens struct {
	mu     sync.Mutex
	stores map[string]*tokens.Memory
}

func (m *memoryTokens) open(sid, key string) (tokens.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tokens.RedisKey(key, sid)
	if s, ok := m.stores[k]; ok {
		return s, nil
	}
	s := tokens.NewMemory("")
	m.stores[k] = s
	return s, nil
}

func (m *memoryTokens) nonEmpty() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.stores {
		if s.Token() != "" {
			n++
		}
	}
	return n
}

func active(b bool) *bool { return &b }

func newTestServer(t *testing.T) (*gin.Engine, *fakeBackend, *memoryTokens) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	employee := apiclient.UserPayload{ID: "u-emp", Email: "emp@acme.test", Role: "FUNCIONARIO_EMPRESA", TenantID: "t1"}
	employee.Modules = []apiclient.ModulePayload{{ID: "m1", Code: "Pedidos_Delivery"}, {ID: "m2", Code: "finance", Active: active(false)}}
	owner := apiclient.UserPayload{ID: "u-own", Email: "own@acme.test", Role: "DONO_EMPRESA"}
	root := apiclient.UserPayload{ID: "u-root", Email: "root@evolutech.test", Role: "SUPER_ADMIN_EVOLUTECH"}

	be := &fakeBackend{
		me: map[string]apiclient.MeResponse{
			"tok-emp":  {User: employee},
			"tok-own":  {User: owner},
			"tok-root": {User: root},
		},
		logins: map[string]apiclient.LoginResponse{
			"emp@acme.test":       {Token: "tok-emp", User: employee},
			"own@acme.test":       {Token: "tok-own", User: owner},
			"root@evolutech.test": {Token: "tok-root", User: root},
			"bad@acme.test":       {Token: "tok-revoked", User: employee},
		},
		customer: map[string]apiclient.CustomerPayload{
			"bia@x.test": {ID: "c1", Name: "Bia", Email: "bia@x.test", CompanyID: "t1"},
		},
	}
	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", SessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	mt := &memoryTokens{stores: map[string]*tokens.Memory{}}

	auditSvc := audit.NewService(audit.NewMemoryRepo(0))
	h := &Handlers{
		Backend:   be,
		Auth:      mgr,
		Tokens:    mt.open,
		Aliases:   modules.DefaultAliases,
		Observers: Observers{Guards: auditSvc},
		Audit:     auditSvc,
	}
	r := gin.New()
	h.Routes(r)
	return r, be, mt
}

type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, r *gin.Engine) *client {
	return &client{t: t, r: r, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestGuard_SignedOutRedirectsWithOrigin(t *testing.T) {
	r, be, _ := newTestServer(t)
	c := newClient(t, r)

	w := c.do(http.MethodGet, "/empresa/app", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login?from=%2Fempresa%2Fapp" {
		t.Fatalf("unexpected %d %q", w.Code, w.Header().Get("Location"))
	}
	if be.meCalls != 0 {
		t.Fatalf("no token must mean no network, got %d calls", be.meCalls)
	}

	w = c.do(http.MethodGet, "/login?from=%2Fempresa%2Fapp", nil)
	if body := decode(t, w); body["from"] != "/empresa/app" {
		t.Fatalf("unexpected login page %v", body)
	}
}

func TestLogin_EmployeeFlow(t *testing.T) {
	r, be, mt := newTestServer(t)
	c := newClient(t, r)

	w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["redirect"] != "/empresa/app" {
		t.Fatalf("unexpected redirect %v", body["redirect"])
	}
	if mt.nonEmpty() != 1 {
		t.Fatalf("expected one stored token")
	}

	be.meCalls = 0
	if w := c.do(http.MethodGet, "/empresa/app", nil); w.Code != http.StatusOK {
		t.Fatalf("app: %d %s", w.Code, w.Body.String())
	}
	if be.meCalls != 1 {
		t.Fatalf("session and modules must share one /auth/me call, got %d", be.meCalls)
	}

	w = c.do(http.MethodGet, "/empresa/dashboard", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/empresa/app" {
		t.Fatalf("dashboard: %d %q", w.Code, w.Header().Get("Location"))
	}

	if w := c.do(http.MethodGet, "/empresa/app/modules/orders", nil); w.Code != http.StatusOK {
		t.Fatalf("orders should match pedidos_delivery: %d %s", w.Code, w.Body.String())
	}
	w = c.do(http.MethodGet, "/empresa/app/modules/finance", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("finance disabled by backend: %d", w.Code)
	}
	if body := decode(t, w); body["state"] != "module_denied" {
		t.Fatalf("expected module card, got %v", body)
	}
}

func TestLogin_ReturnsToOrigin(t *testing.T) {
	r, _, _ := newTestServer(t)
	c := newClient(t, r)

	w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret", "from": "/empresa/app/modules/orders"})
	if body := decode(t, w); body["redirect"] != "/empresa/app/modules/orders" {
		t.Fatalf("unexpected redirect %v", body["redirect"])
	}

	w = c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret", "from": "//evil.test"})
	if body := decode(t, w); body["redirect"] != "/empresa/app" {
		t.Fatalf("open redirect accepted: %v", body["redirect"])
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if mt.nonEmpty() != 0 {
		t.Fatalf("no token may be stored on rejected login")
	}
}

func TestForcedLogout_RemovesToken(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	if w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "bad@acme.test", "password": "secret"}); w.Code != http.StatusOK {
		t.Fatalf("login: %d", w.Code)
	}
	w := c.do(http.MethodGet, "/empresa/app", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login?from=%2Fempresa%2Fapp" {
		t.Fatalf("expected login redirect, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if mt.nonEmpty() != 0 {
		t.Fatalf("rejected token must be removed")
	}
}

func TestUnlinkedOwner_Restricted(t *testing.T) {
	r, _, _ := newTestServer(t)
	c := newClient(t, r)

	c.do(http.MethodPost, "/session/login", map[string]string{"email": "own@acme.test", "password": "secret"})

	w := c.do(http.MethodGet, "/empresa/dashboard", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected restricted, got %d", w.Code)
	}
	if body := decode(t, w); body["state"] != "restricted" {
		t.Fatalf("unexpected body %v", body)
	}

	w = c.do(http.MethodGet, "/session/modules", nil)
	body := decode(t, w)
	codes, _ := body["codes"].([]any)
	if len(codes) != len(modules.DefaultOwnerModules) {
		t.Fatalf("owner with no reported modules gets the defaults, got %v", codes)
	}
}

func TestLogout_ClearsTokenAndRotatesCookie(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret"})
	before := c.cookies[auth.CookieName(auth.KindOperator)].Value

	w := c.do(http.MethodPost, "/session/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	body := decode(t, w)
	if body["redirect"] != "/login" {
		t.Fatalf("unexpected redirect %v", body["redirect"])
	}
	if notices, _ := body["notices"].([]any); len(notices) != 1 {
		t.Fatalf("expected logout notice, got %v", body["notices"])
	}
	if mt.nonEmpty() != 0 {
		t.Fatalf("token must be deleted")
	}
	if c.cookies[auth.CookieName(auth.KindOperator)].Value == before {
		t.Fatalf("cookie must rotate")
	}

	w = c.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("root after logout: %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestRoot_RedirectsByRole(t *testing.T) {
	r, _, _ := newTestServer(t)
	c := newClient(t, r)

	c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret"})
	w := c.do(http.MethodGet, "/", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/empresa/app" {
		t.Fatalf("unexpected %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestPortal_LoginMeLogout(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	if w := c.do(http.MethodGet, "/portal/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", w.Code)
	}

	w := c.do(http.MethodPost, "/portal/login", map[string]string{"email": "bia@x.test", "password": "secret", "company_slug": "acme"})
	if w.Code != http.StatusOK {
		t.Fatalf("portal login: %d %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["redirect"] != "/portal" {
		t.Fatalf("unexpected redirect %v", body["redirect"])
	}

	if w := c.do(http.MethodGet, "/portal/me", nil); w.Code != http.StatusOK {
		t.Fatalf("portal me: %d", w.Code)
	}
	if w := c.do(http.MethodGet, "/empresa/app", nil); w.Code != http.StatusFound {
		t.Fatalf("customer session must not open operator areas, got %d", w.Code)
	}

	if w := c.do(http.MethodPost, "/portal/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("portal logout: %d", w.Code)
	}
	if mt.nonEmpty() != 0 {
		t.Fatalf("customer token must be deleted")
	}
}

func TestPortal_RegisterValidatesInput(t *testing.T) {
	r, _, _ := newTestServer(t)
	c := newClient(t, r)

	if w := c.do(http.MethodPost, "/portal/register", map[string]string{"email": "x@y.z"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w := c.do(http.MethodPost, "/portal/register", map[string]string{"name": "Ana", "email": "ana@x.test", "password": "pw", "company_slug": "acme"})
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
}

func TestLogin_SecondLoginRevokesPreviousSlot(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	if w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret"}); w.Code != http.StatusOK {
		t.Fatalf("first login: %d", w.Code)
	}
	old := *c.cookies[auth.CookieName(auth.KindOperator)]

	if w := c.do(http.MethodPost, "/session/login", map[string]string{"email": "own@acme.test", "password": "secret"}); w.Code != http.StatusOK {
		t.Fatalf("second login: %d", w.Code)
	}
	if n := mt.nonEmpty(); n != 1 {
		t.Fatalf("expected one stored token after re-login, got %d", n)
	}

	stale := newClient(t, r)
	stale.cookies[old.Name] = &old
	body := decode(t, stale.do(http.MethodGet, "/session", nil))
	snap, _ := body["session"].(map[string]any)
	if snap["is_authenticated"] != false {
		t.Fatalf("old cookie must not stay signed in, got %v", snap)
	}
}

func TestPortal_SecondLoginRevokesPreviousSlot(t *testing.T) {
	r, _, mt := newTestServer(t)
	c := newClient(t, r)

	c.do(http.MethodPost, "/portal/login", map[string]string{"email": "bia@x.test", "password": "secret", "company_slug": "acme"})
	old := *c.cookies[auth.CookieName(auth.KindCustomer)]

	w := c.do(http.MethodPost, "/portal/register", map[string]string{"name": "Ana", "email": "ana@x.test", "password": "pw", "company_slug": "acme"})
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d", w.Code)
	}
	if n := mt.nonEmpty(); n != 1 {
		t.Fatalf("expected one stored token, got %d", n)
	}

	stale := newClient(t, r)
	stale.cookies[old.Name] = &old
	if w := stale.do(http.MethodGet, "/portal/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("old portal cookie must be signed out, got %d", w.Code)
	}
}

func TestAuditEvents_SuperAdminSeesRoleDenials(t *testing.T) {
	r, _, _ := newTestServer(t)

	emp := newClient(t, r)
	emp.do(http.MethodPost, "/session/login", map[string]string{"email": "emp@acme.test", "password": "secret"})
	if w := emp.do(http.MethodGet, "/admin-evolutech", nil); w.Code != http.StatusFound {
		t.Fatalf("employee must be redirected away, got %d", w.Code)
	}
	if w := emp.do(http.MethodGet, "/admin-evolutech/audit", nil); w.Code != http.StatusFound {
		t.Fatalf("employee must not read the audit trail, got %d", w.Code)
	}

	admin := newClient(t, r)
	admin.do(http.MethodPost, "/session/login", map[string]string{"email": "root@evolutech.test", "password": "secret"})

	w := admin.do(http.MethodGet, "/admin-evolutech/audit?type=access_denied&actor_id=u-emp", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit: %d %s", w.Code, w.Body.String())
	}
	events, _ := decode(t, w)["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("expected both denied requests, got %v", events)
	}
	first, _ := events[0].(map[string]any)
	if first["path"] != "/admin-evolutech/audit" || first["message"] != "role" {
		t.Fatalf("unexpected newest event %v", first)
	}

	if w := admin.do(http.MethodGet, "/admin-evolutech/audit?type=bogus", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", w.Code)
	}
	if w := admin.do(http.MethodGet, "/admin-evolutech/audit?limit=0", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}
