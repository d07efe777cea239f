package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/tokens"
)

// LandingPath is the single landing area of the customer portal.
const LandingPath = "/portal"

var ErrInvalidArgument = errors.New("customer: invalid argument")

type Customer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name,omitempty"`
	CompanySlug string    `json:"company_slug,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Session struct {
	Customer        *Customer `json:"customer"`
	IsAuthenticated bool      `json:"is_authenticated"`
	IsLoading       bool      `json:"is_loading"`
}

// API validates customer tokens (GET /customer-auth/me).
type API interface {
	CustomerMe(ctx context.Context, token string) (apiclient.CustomerMeResponse, error)
}

// Store is the customer-portal counterpart of the operator session store:
// one entity kind, one company, no roles.
type Store struct {
	tokens tokens.Store
	api    API
	log    *slog.Logger

	mountOnce sync.Once
	mountErr  error

	mu     sync.RWMutex
	state  Session
	gen    uint64
	closed bool
}

func New(ts tokens.Store, api API, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{tokens: ts, api: api, log: log, state: Session{IsLoading: true}}
}

func (s *Store) Mount(ctx context.Context) error {
	s.mountOnce.Do(func() { s.mountErr = s.CheckAuth(ctx) })
	return s.mountErr
}

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
		return fmt.Errorf("customer: load token: %w", err)
	}

	me, err := s.api.CustomerMe(ctx, tok)
	if err != nil {
		s.mu.Lock()
		if !s.closed && gen == s.gen {
			if delErr := s.tokens.Delete(ctx); delErr != nil {
				s.log.ErrorContext(ctx, "customer token delete failed", "err", delErr)
			}
			s.state = Session{}
		}
		s.mu.Unlock()
		s.log.WarnContext(ctx, "customer session invalidated", "err", err)
		return nil
	}

	c := Normalize(me.Customer)
	s.apply(gen, Session{Customer: &c, IsAuthenticated: true})
	return nil
}

func (s *Store) Login(ctx context.Context, token string, p apiclient.CustomerPayload) error {
	if token == "" || p.ID == "" {
		return ErrInvalidArgument
	}
	c := Normalize(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("customer: save token: %w", err)
	}
	s.gen++
	s.state = Session{Customer: &c, IsAuthenticated: true}
	return nil
}

func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.tokens.Delete(ctx)
	s.gen++
	s.state = Session{}
	if err != nil {
		return fmt.Errorf("customer: delete token: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	s.mu.Unlock()
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if s.state.Customer != nil {
		c := *s.state.Customer
		out.Customer = &c
	}
	return out
}

func (s *Store) apply(gen uint64, st Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.state = st
}

func Normalize(p apiclient.CustomerPayload) Customer {
	c := Customer{
		ID:          strings.TrimSpace(p.ID),
		Name:        strings.TrimSpace(p.Name),
		Email:       strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:       strings.TrimSpace(p.Phone),
		CompanyID:   strings.TrimSpace(p.CompanyID),
		CompanyName: strings.TrimSpace(p.CompanyName),
		CompanySlug: strings.TrimSpace(p.CompanySlug),
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		c.CreatedAt = t.UTC()
	}
	return c
}
