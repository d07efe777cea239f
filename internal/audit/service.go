package audit

import (
	"context"
	"errors"
	"time"

	"evolutech-console/internal/rbac"
	"evolutech-console/internal/session"
	"evolutech-console/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
	Find(ctx context.Context, f Filter) ([]Event, error)
}

// Service records session lifecycle and guard denials.
// Audit is internal-only and callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Type.Valid() {
		return ErrInvalidEvent
	}
	// Every event except a forced logout has a known actor or a known path.
	if e.Type != EventTypeForcedLogout && e.ActorID == "" && e.Path == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if info, ok := requestInfoFrom(ctx); ok {
		if e.IPAddress == "" {
			e.IPAddress = info.ip
		}
		if e.Device == "" {
			e.Device = DeviceSummary(info.userAgent)
		}
	}
	return s.repo.Append(ctx, e)
}

// Recent lists events matching f, newest first.
func (s *Service) Recent(ctx context.Context, f Filter) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidEvent
	}
	return s.repo.Find(ctx, f)
}

// SessionEvent lets the service observe a session.Store.
func (s *Service) SessionEvent(ctx context.Context, ev session.Event) {
	e := Event{Message: ev.Reason}
	switch ev.Kind {
	case session.EventLogin:
		e.Type = EventTypeLogin
	case session.EventLogout:
		e.Type = EventTypeLogout
	case session.EventForcedLogout:
		e.Type = EventTypeForcedLogout
	default:
		return
	}
	if ev.User != nil {
		e.ActorID = ev.User.ID
		e.ActorRole = string(ev.User.Role)
		e.TenantID = ev.User.TenantID
	}
	s.bestEffort(ctx, e)
}

// GuardDecision records denials; allowed and loading outcomes are not audited.
// Sending a signed-out visitor to login is not a denial either.
func (s *Service) GuardDecision(c *gin.Context, guard, outcome string) {
	var (
		typ EventType
		msg string
	)
	switch {
	case guard == "access" && outcome == string(rbac.AccessRedirect):
		typ, msg = EventTypeAccessDenied, "role"
	case guard == "access" && outcome == string(rbac.AccessRestricted):
		typ, msg = EventTypeAccessDenied, "tenant"
	case guard == "module" && outcome == string(rbac.ModuleDenied):
		typ = EventTypeModuleDenied
	default:
		return
	}

	ctx := c.Request.Context()
	e := Event{Type: typ, Path: c.Request.URL.Path, Module: c.Param("code"), Message: msg}
	if sub, err := rbac.SubjectFrom(ctx); err == nil {
		e.ActorRole = string(sub.Role)
		e.TenantID = sub.TenantID
	}
	if uid, ok := c.Get("user_id"); ok {
		e.ActorID, _ = uid.(string)
	}
	s.bestEffort(ctx, e)
}

func (s *Service) bestEffort(ctx context.Context, e Event) {
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).WarnContext(ctx, "audit append failed", "type", string(e.Type), "err", err)
	}
}

type requestInfo struct {
	ip        string
	userAgent string
}

type ctxKey struct{}

// WithRequest stores the client address and User-Agent for events appended later in the request.
func WithRequest(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestInfo{ip: ip, userAgent: userAgent})
}

func requestInfoFrom(ctx context.Context) (requestInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(requestInfo)
	return info, ok
}

// Middleware captures request info for the audit trail.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithRequest(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
