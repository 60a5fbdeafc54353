package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool runs named background tasks and waits for them on shutdown. Tasks
// submitted after Shutdown are dropped. A panicking task is logged and does
// not take the process down.
type Pool struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewPool creates a new worker pool
func NewPool(logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit runs task in its own goroutine. It reports false when the pool is
// already shut down.
func (p *Pool) Submit(name string, task func(ctx context.Context)) bool {
	return p.start(name, func() {
		task(p.ctx)
	})
}

// SubmitWithTimeout runs task with a context that expires after timeout.
func (p *Pool) SubmitWithTimeout(name string, timeout time.Duration, task func(ctx context.Context)) bool {
	return p.start(name, func() {
		ctx, cancel := context.WithTimeout(p.ctx, timeout)
		defer cancel()
		task(ctx)
	})
}

// Every runs task immediately and then once per interval until shutdown.
func (p *Pool) Every(name string, interval time.Duration, task func(ctx context.Context)) bool {
	return p.start(name, func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			p.run(name, task)
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Context returns the pool's context
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown cancels running tasks and waits up to timeout for them. It
// reports whether every task finished in time.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
		return true
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
		)
		return false
	}
}

func (p *Pool) start(name string, body func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("⚠️ [Worker] Task rejected after shutdown", "task", name)
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.recover(name)
		body()
	}()
	return true
}

func (p *Pool) run(name string, task func(ctx context.Context)) {
	defer p.recover(name)
	task(p.ctx)
}

func (p *Pool) recover(name string) {
	if r := recover(); r != nil {
		p.logger.Error("❌ [Worker] Task panicked", "task", name, "panic", r)
	}
}
