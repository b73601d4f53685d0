package messenger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher runs event handlers off the acknowledgment path and tracks them for shutdown.
type Dispatcher struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Go runs fn in its own goroutine. It returns false once Drain has started.
func (d *Dispatcher) Go(name string, fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatch_rejected", zap.String("task", name))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("dispatch_panic", zap.String("task", name), zap.String("panic", fmt.Sprint(r)))
			}
		}()
		fn()
	}()
	return true
}

// Drain refuses new work and waits for running handlers or ctx.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
