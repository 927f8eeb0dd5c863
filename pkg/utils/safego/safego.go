package safego

import (
	"context"
	"runtime/debug"

	"github.com/kiosk404/warden/pkg/logger"
)

// Go runs fn in a new goroutine and logs instead of crashing on panic.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer Recover(ctx)
		fn()
	}()
}

// Recover must be deferred directly.
func Recover(ctx context.Context) {
	if r := recover(); r != nil {
		logger.Error("[SafeGo] goroutine panic recovered: %v\n%s", r, debug.Stack())
	}
}
