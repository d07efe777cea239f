package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/rbac"
	"evolutech-console/internal/tokens"
)

var ErrInvalidArgument = errors.New("session: invalid argument")

// Validator checks a bearer token against the backend (GET /auth/me).
type Validator interface {
	Me(ctx context.Context, token string) (apiclient.MeResponse, error)
}

// Store owns the operator session lifecycle.
//
// Invariants:
// - at most one token is persisted; no token means no user
// - IsLoading is true until the first CheckAuth completes
// - a CheckAuth result is dropped when Login/Logout/Close ran while it was in flight
type Store struct {
	tokens    tokens.Store
	validator Validator
	notifier  Notifier
	observer  Observer
	log       *slog.Logger

	mountOnce sync.Once
	mountErr  error

	mu     sync.RWMutex
	state  Session
	gen    uint64
	closed bool
}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func New(ts tokens.Store, v Validator, opts ...Option) *Store {
	s := &Store{
		tokens:    ts,
		validator: v,
		notifier:  logNotifier{},
		observer:  nopObserver{},
		log:       slog.Default(),
		state:     Session{IsLoading: true},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mount runs CheckAuth exactly once for the lifetime of the store.
func (s *Store) Mount(ctx context.Context) error {
	s.mountOnce.Do(func() {
		s.mountErr = s.CheckAuth(ctx)
	})
	return s.mountErr
}

// CheckAuth validates the persisted token. Any validation failure is a forced
// logout: the token is deleted and the state reset. Nothing is retried.
func (s *Store) CheckAuth(ctx context.Context) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	tok, err := s.tokens.Load(ctx)
	if errors.Is(err, tokens.ErrNoToken) {
		s.apply(gen, Session{})
		return nil
	}
	if err != nil {
		s.apply(gen, Session{})
		return fmt.Errorf("session: load token: %w", err)
	}

	me, err := s.validator.Me(ctx, tok)
	if err != nil {
		s.forceLogout(ctx, gen, err)
		return nil
	}

	user := NormalizeUser(me.User)
	if s.apply(gen, Session{User: &user, Company: NormalizeCompany(me.Company), IsAuthenticated: true}) {
		s.observer.SessionEvent(ctx, Event{Kind: EventValidated, User: &user})
	}
	return nil
}

// Login trusts the caller to have verified credentials with the backend already.
func (s *Store) Login(ctx context.Context, token string, user apiclient.UserPayload, company *apiclient.CompanyPayload) error {
	if token == "" || user.ID == "" {
		return ErrInvalidArgument
	}
	u := NormalizeUser(user)

	s.mu.Lock()
	if err := s.tokens.Save(ctx, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session: save token: %w", err)
	}
	s.gen++
	s.state = Session{User: &u, Company: NormalizeCompany(company), IsAuthenticated: true}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "session login", "user_id", u.ID, "role", u.Role)
	s.observer.SessionEvent(ctx, Event{Kind: EventLogin, User: &u})
	return nil
}

// Logout clears the token and state, then notifies the user.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.state.User
	err := s.tokens.Delete(ctx)
	s.gen++
	s.state = Session{}
	s.mu.Unlock()

	s.observer.SessionEvent(ctx, Event{Kind: EventLogout, User: prev})
	s.notifier.Notify(ctx, Notice{Level: "success", Message: "Logout realizado com sucesso"})
	if err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	return nil
}

// Close marks the store unmounted; in-flight validations are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	s.mu.Unlock()
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) IsAuthenticated() bool { return s.Snapshot().IsAuthenticated }

func (s *Store) IsLoading() bool { return s.Snapshot().IsLoading }

// RedirectPath is the landing path for the current role.
func (s *Store) RedirectPath() string {
	return rbac.LandingPath(s.Snapshot().Role())
}

// HasPermission is plain set membership; signed-out users have no permissions.
func (s *Store) HasPermission(roles ...rbac.Role) bool {
	snap := s.Snapshot()
	if !snap.IsAuthenticated {
		return false
	}
	return rbac.Contains(roles, snap.Role())
}

func (s *Store) apply(gen uint64, st Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return false
	}
	s.state = st
	return true
}

func (s *Store) forceLogout(ctx context.Context, gen uint64, cause error) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	delErr := s.tokens.Delete(ctx)
	s.state = Session{}
	s.mu.Unlock()

	s.log.WarnContext(ctx, "session invalidated", "err", cause)
	if delErr != nil {
		s.log.ErrorContext(ctx, "token delete failed", "err", delErr)
	}
	s.observer.SessionEvent(ctx, Event{Kind: EventForcedLogout, Reason: cause.Error()})
}
