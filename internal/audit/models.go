package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is empty for Evolutech staff and for signed-out visitors.
// - audit is best-effort; a failed append never blocks a session flow.
type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	Type EventType `json:"type" db:"type"`

	ActorID   string `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	// Device is a "Browser on OS" summary of the User-Agent, never the raw header.
	Device string `json:"device,omitempty" db:"device"`

	Path   string `json:"path,omitempty" db:"path"`
	Module string `json:"module,omitempty" db:"module"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLogin        EventType = "login"
	EventTypeLogout       EventType = "logout"
	EventTypeForcedLogout EventType = "forced_logout"
	EventTypeAccessDenied EventType = "access_denied"
	EventTypeModuleDenied EventType = "module_denied"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeLogin, EventTypeLogout, EventTypeForcedLogout, EventTypeAccessDenied, EventTypeModuleDenied:
		return true
	default:
		return false
	}
}

const (
	DefaultFindLimit = 50
	MaxFindLimit     = 500
)

// Filter selects events for review, newest first. Empty fields match anything.
type Filter struct {
	Type     EventType
	ActorID  string
	TenantID string
	Limit    int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultFindLimit
	case f.Limit > MaxFindLimit:
		return MaxFindLimit
	default:
		return f.Limit
	}
}

func (f Filter) matches(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	return true
}
