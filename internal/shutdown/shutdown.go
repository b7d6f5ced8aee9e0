// Package shutdown closes registered services in reverse order on exit.
package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type namedCloser struct {
	name  string
	close func() error
}

// Handler collects named closers and runs them LIFO, so services are
// torn down in the reverse of their start order.
type Handler struct {
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	closers []namedCloser
}

// New creates a handler. A zero timeout defaults to 30 seconds.
func New(logger *zap.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a closer under a name used in shutdown logs.
func (h *Handler) Add(name string, fn func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closers = append(h.closers, namedCloser{name: name, close: fn})
}

// Run closes everything registered, newest first. Each closer gets the
// remainder of the shared timeout; a hung closer is abandoned with an
// error log rather than blocking the process exit.
func (h *Handler) Run() {
	h.mu.Lock()
	closers := make([]namedCloser, len(h.closers))
	copy(closers, h.closers)
	h.closers = nil
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.logger.Info("Shutting down", zap.Int("services", len(closers)))

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]

		done := make(chan error, 1)
		go func() {
			done <- c.close()
		}()

		select {
		case err := <-done:
			if err != nil {
				h.logger.Error("Service close failed",
					zap.String("service", c.name), zap.Error(err))
			} else {
				h.logger.Debug("Service closed", zap.String("service", c.name))
			}
		case <-ctx.Done():
			h.logger.Error("Service close timed out",
				zap.String("service", c.name))
		}
	}
}
