package modules

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/rbac"
	"evolutech-console/internal/tokens"

	"golang.org/x/sync/singleflight"
)

// DefaultIDPrefix marks module entries synthesized locally for tenant owners.
// Backend ids never carry it.
const DefaultIDPrefix = "default-"

// DefaultOwnerModules are granted to DONO_EMPRESA unless the backend reported them.
var DefaultOwnerModules = []string{"dashboard", "reports", "users", "settings", "support"}

type Module struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Synthesized bool   `json:"synthesized,omitempty"`
}

// Entitlements is a snapshot of the resolved module set.
type Entitlements struct {
	Role    rbac.Role `json:"role,omitempty"`
	Modules []Module  `json:"modules"`
	Codes   []string  `json:"codes"`
	Loading bool      `json:"loading"`
}

func (e Entitlements) clone() Entitlements {
	out := e
	out.Modules = append([]Module(nil), e.Modules...)
	out.Codes = append([]string(nil), e.Codes...)
	return out
}

// Source is the session-validation endpoint; modules ride along on GET /auth/me.
type Source interface {
	Me(ctx context.Context, token string) (apiclient.MeResponse, error)
}

type FetchOutcome string

const (
	FetchOK      FetchOutcome = "ok"
	FetchNoToken FetchOutcome = "no_token"
	FetchFailed  FetchOutcome = "failed"
)

type Observer interface {
	ModulesFetched(ctx context.Context, outcome FetchOutcome, count int)
}

type nopObserver struct{}

func (nopObserver) ModulesFetched(context.Context, FetchOutcome, int) {}

// Resolver answers "may this session use module X". Any fetch failure yields an
// empty set: nothing is granted on error.
type Resolver struct {
	tokens   tokens.Store
	source   Source
	aliases  AliasTable
	defaults []string
	log      *slog.Logger
	observer Observer

	group singleflight.Group

	mu    sync.RWMutex
	state Entitlements
	gen   uint64
}

type Option func(*Resolver)

func WithAliases(t AliasTable) Option {
	return func(r *Resolver) {
		if t != nil {
			r.aliases = t
		}
	}
}

func WithDefaults(codes []string) Option {
	return func(r *Resolver) { r.defaults = append([]string(nil), codes...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

func NewResolver(ts tokens.Store, src Source, opts ...Option) *Resolver {
	r := &Resolver{
		tokens:   ts,
		source:   src,
		aliases:  DefaultAliases,
		defaults: DefaultOwnerModules,
		log:      slog.Default(),
		observer: nopObserver{},
		state:    Entitlements{Loading: true},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

const fetchKey = "fetch"

// Fetch resolves the entitlement set. Concurrent callers share one API call,
// which runs detached from any single caller's cancellation.
func (r *Resolver) Fetch(ctx context.Context) Entitlements {
	v, _, _ := r.group.Do(fetchKey, func() (any, error) {
		r.mu.RLock()
		gen := r.gen
		r.mu.RUnlock()
		return r.run(context.WithoutCancel(ctx), gen), nil
	})
	return v.(Entitlements).clone()
}

// Refresh re-enters the loading state and always issues a new fetch. Results of
// fetches that were in flight when it started are discarded.
func (r *Resolver) Refresh(ctx context.Context) Entitlements {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state.Loading = true
	r.mu.Unlock()

	r.group.Forget(fetchKey)
	return r.run(ctx, gen).clone()
}

// run loads and publishes a result unless a newer refresh superseded it, in
// which case the current state is returned instead.
func (r *Resolver) run(ctx context.Context, gen uint64) Entitlements {
	ent := r.load(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return r.state
	}
	r.state = ent
	return ent
}

func (r *Resolver) Snapshot() Entitlements {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

func (r *Resolver) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Loading
}

// HasModule is a pure query over the last fetched set.
func (r *Resolver) HasModule(code string) bool {
	r.mu.RLock()
	codes := r.state.Codes
	r.mu.RUnlock()
	return Has(r.aliases, codes, code)
}

// Has reports whether any code in set satisfies any candidate spelling of code.
func Has(t AliasTable, set []string, code string) bool {
	candidates := t.Candidates(code)
	for _, stored := range set {
		for _, a := range candidates {
			if Match(stored, a) {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) load(ctx context.Context) Entitlements {
	tok, err := r.tokens.Load(ctx)
	if errors.Is(err, tokens.ErrNoToken) {
		r.observer.ModulesFetched(ctx, FetchNoToken, 0)
		return Entitlements{}
	}
	if err != nil {
		r.log.WarnContext(ctx, "module token load failed", "err", err)
		r.observer.ModulesFetched(ctx, FetchFailed, 0)
		return Entitlements{}
	}

	me, err := r.source.Me(ctx, tok)
	if err != nil {
		r.log.WarnContext(ctx, "module fetch failed", "err", err)
		r.observer.ModulesFetched(ctx, FetchFailed, 0)
		return Entitlements{}
	}

	role, _ := rbac.ParseRole(me.User.Role)
	ent := Resolve(role, reported(me), r.defaults)
	r.observer.ModulesFetched(ctx, FetchOK, len(ent.Codes))
	return ent
}

// reported prefers the user-level list, the more specific source.
func reported(me apiclient.MeResponse) []apiclient.ModulePayload {
	if me.User.Modules != nil {
		return me.User.Modules
	}
	if me.Company != nil {
		return me.Company.Modules
	}
	return nil
}

// Resolve builds the entitlement set from backend-reported modules.
// A module reported with active=false counts as reported (so it is never
// default-granted) but is left out of the set.
func Resolve(role rbac.Role, list []apiclient.ModulePayload, defaults []string) Entitlements {
	out := Entitlements{Role: role, Modules: []Module{}, Codes: []string{}}
	reportedCodes := make(map[string]struct{}, len(list))
	granted := make(map[string]struct{}, len(list))

	for _, m := range list {
		code := Normalize(m.Code)
		if code == "" {
			continue
		}
		reportedCodes[code] = struct{}{}
		if m.Active != nil && !*m.Active {
			continue
		}
		if _, dup := granted[code]; dup {
			continue
		}
		granted[code] = struct{}{}
		out.Modules = append(out.Modules, Module{ID: m.ID, Code: code, Name: m.Name})
	}

	if role == rbac.RoleOwner {
		for _, d := range defaults {
			code := Normalize(d)
			if code == "" {
				continue
			}
			if _, ok := reportedCodes[code]; ok {
				continue
			}
			if _, dup := granted[code]; dup {
				continue
			}
			granted[code] = struct{}{}
			out.Modules = append(out.Modules, Module{ID: DefaultIDPrefix + code, Code: code, Synthesized: true})
		}
	}

	for code := range granted {
		out.Codes = append(out.Codes, code)
	}
	sort.Strings(out.Codes)
	return out
}
