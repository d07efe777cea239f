package session

import (
	"strings"
	"time"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/rbac"
)

// User is the authenticated operator.
// TenantID is empty for Evolutech staff; that is the "unlinked" state, not an error.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       rbac.Role `json:"role"`
	TenantID   string    `json:"tenant_id,omitempty"`
	TenantName string    `json:"tenant_name,omitempty"`
	TenantSlug string    `json:"tenant_slug,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Theme struct {
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
}

type Company struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Theme Theme  `json:"theme"`
}

// Session is an immutable snapshot of the store.
// Invariant: IsAuthenticated implies User != nil.
type Session struct {
	User            *User    `json:"user"`
	Company         *Company `json:"company,omitempty"`
	IsAuthenticated bool     `json:"is_authenticated"`
	IsLoading       bool     `json:"is_loading"`
}

// Role returns the current role or "" when signed out.
func (s Session) Role() rbac.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Unlinked reports an authenticated user that belongs to no tenant.
func (s Session) Unlinked() bool {
	return s.IsAuthenticated && s.User != nil && s.User.TenantID == ""
}

// Subject is the view the guards evaluate.
func (s Session) Subject() rbac.Subject {
	sub := rbac.Subject{Loading: s.IsLoading, Authenticated: s.IsAuthenticated}
	if s.User != nil {
		sub.Role = s.User.Role
		sub.TenantID = s.User.TenantID
	}
	return sub
}

func (s Session) clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Company != nil {
		c := *s.Company
		out.Company = &c
	}
	return out
}

// NormalizeUser maps a backend payload onto the session user shape.
func NormalizeUser(p apiclient.UserPayload) User {
	role := rbac.Role(strings.ToUpper(strings.TrimSpace(p.Role)))
	if r, ok := rbac.ParseRole(p.Role); ok {
		role = r
	}
	u := User{
		ID:         strings.TrimSpace(p.ID),
		Email:      strings.ToLower(strings.TrimSpace(p.Email)),
		Name:       strings.TrimSpace(p.Name),
		Role:       role,
		TenantID:   strings.TrimSpace(p.TenantID),
		TenantName: strings.TrimSpace(p.TenantName),
		TenantSlug: strings.TrimSpace(p.TenantSlug),
		Avatar:     strings.TrimSpace(p.Avatar),
	}
	if u.Name == "" {
		u.Name = u.Email
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		u.CreatedAt = t.UTC()
	}
	return u
}

func NormalizeCompany(p *apiclient.CompanyPayload) *Company {
	if p == nil || p.ID == "" {
		return nil
	}
	return &Company{
		ID:   p.ID,
		Name: p.Name,
		Slug: p.Slug,
		Theme: Theme{
			PrimaryColor:   p.PrimaryColor,
			SecondaryColor: p.SecondaryColor,
			LogoURL:        p.LogoURL,
		},
	}
}
