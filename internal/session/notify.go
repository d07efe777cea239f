package session

import (
	"context"
	"log/slog"

	"evolutech-console/pkg/logger"
)

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notifier surfaces user-visible messages (toasts in the dashboard, stdout in the CLI).
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, n Notice) {
	logger.From(ctx).LogAttrs(ctx, slog.LevelInfo, "notice", slog.String("level", n.Level), slog.String("message", n.Message))
}

// EventKind classifies session lifecycle transitions for audit and metrics.
type EventKind string

const (
	EventLogin        EventKind = "login"
	EventLogout       EventKind = "logout"
	EventForcedLogout EventKind = "forced_logout"
	EventValidated    EventKind = "validated"
)

type Event struct {
	Kind   EventKind
	User   *User
	Reason string
}

// Observer receives lifecycle events. Implementations must not block.
type Observer interface {
	SessionEvent(ctx context.Context, ev Event)
}

type nopObserver struct{}

func (nopObserver) SessionEvent(context.Context, Event) {}

// Observers fans one event out to several observers in order.
type Observers []Observer

func (o Observers) SessionEvent(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.SessionEvent(ctx, ev)
		}
	}
}
