// Package resource provides a process-wide controller for memory budgets and
// IO throughput limits, shared by allocators and readers that should not
// outgrow their host.
package resource

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the
// configured memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits. Zero values disable the respective limit.
type Config struct {
	// MemoryLimitBytes is the hard limit for managed memory.
	// If 0, reservations are tracked but never denied.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec caps throughput for throttled readers and writers.
	// If 0, unlimited.
	IOLimitBytesPerSec int64

	// Logger records denied reservations at debug level. Nil keeps the
	// controller silent.
	Logger *slog.Logger
}

// Controller tracks memory reservations and meters IO. A nil *Controller is
// valid and enforces nothing, so callers can wire one in unconditionally.
//
// Controller satisfies arena.MemoryBudget and binio.Throttle.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a resource controller from the given limits.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireMemory attempts to reserve bytes against the memory limit. It never
// blocks: on a full budget it returns ErrMemoryLimitExceeded immediately,
// leaving retry policy to the caller.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Debug("memory reservation denied",
				"requested", bytes,
				"used", c.memUsed.Load(),
				"limit", c.cfg.MemoryLimitBytes,
			)
		}
		return ErrMemoryLimitExceeded
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}

// TryAcquireIO reports whether the IO limit allows the specified number of
// bytes right now, without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
