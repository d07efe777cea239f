package rbac

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxSubject ctxKey = iota
	ctxModules
)

func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, ctxSubject, s)
}

// SubjectFrom returns the subject placed by the session loader. A request that
// never passed the loader is treated as loading, so guards wait instead of redirecting.
func SubjectFrom(ctx context.Context) (Subject, error) {
	if s, ok := ctx.Value(ctxSubject).(Subject); ok {
		return s, nil
	}
	return Subject{Loading: true}, errors.New("subject not in context")
}

func WithModules(ctx context.Context, m ModuleChecker) context.Context {
	return context.WithValue(ctx, ctxModules, m)
}

func ModulesFrom(ctx context.Context) (ModuleChecker, error) {
	if m, ok := ctx.Value(ctxModules).(ModuleChecker); ok && m != nil {
		return m, nil
	}
	return nil, errors.New("modules not in context")
}
