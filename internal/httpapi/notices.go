package httpapi

import (
	"context"
	"sync"

	"evolutech-console/internal/session"
)

// noticeBuffer collects user-visible notices raised while serving one request.
type noticeBuffer struct {
	mu      sync.Mutex
	notices []session.Notice
}

func (b *noticeBuffer) Notify(_ context.Context, n session.Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
}

func (b *noticeBuffer) drain() []session.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []session.Notice{}
	}
	return out
}
