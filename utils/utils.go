// Package utils holds small helpers shared by the engine and its callers.
package utils

import (
	"context"
	"time"
)

// MergeMaps merges multiple maps into one, with later maps overriding
// earlier ones. The inputs are never mutated; the result is always a fresh
// map, so merging a single map produces an independent copy.
func MergeMaps(maps ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// WithTimeout wraps a function call with a timeout. The function receives a
// derived context it should honor; if the deadline passes first, the
// context's error is returned while the function finishes in the background.
func WithTimeout(parentCtx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
