package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxSessionID ctxKey = iota
	ctxKind
)

var ErrNoSession = errors.New("auth: session id not in context")

func WithSession(ctx context.Context, sid string, kind Kind) context.Context {
	ctx = context.WithValue(ctx, ctxSessionID, sid)
	ctx = context.WithValue(ctx, ctxKind, kind)
	return ctx
}

func SessionID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxSessionID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoSession
}

func SessionKind(ctx context.Context) (Kind, error) {
	if k, ok := ctx.Value(ctxKind).(Kind); ok && k.Valid() {
		return k, nil
	}
	return "", ErrNoSession
}
