package tokens

import (
	"context"
	"errors"
	"sync"
)

// Fixed persistence keys. Absence of a value under the key is the only "no session" signal.
const (
	OperatorKey = "evolutech_token"
	CustomerKey = "customer_token"
)

var ErrNoToken = errors.New("tokens: no token persisted")

// Store persists at most one bearer token.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Memory is an in-process Store useful for tests and short-lived clients.
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory(initial string) *Memory { return &Memory{token: initial} }

func (m *Memory) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *Memory) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("tokens: empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Token returns the raw persisted value ("" when absent).
func (m *Memory) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}
