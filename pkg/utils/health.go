package utils

import (
	"context"
	"sort"
	"sync"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Readiness runs all checks concurrently and returns the failures by name.
// An empty result means ready.
func Readiness(ctx context.Context, checks map[string]Check) map[string]string {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = map[string]string{}
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := check(ctx); err != nil {
				mu.Lock()
				failed[name] = err.Error()
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failed
}

// CheckNames lists checks in a stable order for logs.
func CheckNames(checks map[string]Check) []string {
	out := make([]string, 0, len(checks))
	for name := range checks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
