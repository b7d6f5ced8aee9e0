// internal/bridge/wsbridge/worker.go
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadTimeout      = 60 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultCallTimeout      = 10 * time.Second

	pingWriteWait = 5 * time.Second
)

var errNotConnected = errors.New("not connected")

// connHandler supplies the session-specific half of the connection loop.
type connHandler interface {
	url() string
	onConnect(ctx context.Context, conn *websocket.Conn) error
	onMessage(ctx context.Context, msg []byte)
	onDisconnect(err error)
	id() string
}

// worker owns one WebSocket connection and keeps it alive: reconnect
// with capped exponential backoff, read deadlines, a ping loop, and
// serialized writes.
type worker struct {
	handler connHandler
	logger  *zap.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	handshakeTimeout time.Duration
	readTimeout      time.Duration
	pingInterval     time.Duration
}

func newWorker(handler connHandler, logger *zap.Logger) *worker {
	return &worker{
		handler:          handler,
		logger:           logger,
		handshakeTimeout: defaultHandshakeTimeout,
		readTimeout:      defaultReadTimeout,
		pingInterval:     defaultPingInterval,
	}
}

// start launches the connection loop.
func (w *worker) start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// stop terminates the loop and closes the connection.
func (w *worker) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *worker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			delay := policy.NextBackOff()
			w.logger.Warn("connection failed",
				zap.String("id", w.handler.id()),
				zap.Duration("retry_in", delay),
				zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		policy.Reset()
		w.process(ctx)
	}
}

func (w *worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, w.handler.url(), nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.onConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("session handshake: %w", err)
	}

	w.logger.Info("connected", zap.String("id", w.handler.id()))
	return nil
}

func (w *worker) process(ctx context.Context) {
	pingDone := make(chan struct{})
	defer close(pingDone)
	if w.pingInterval > 0 {
		w.wg.Add(1)
		go w.pingLoop(ctx, pingDone)
	}

	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		_ = c.SetReadDeadline(time.Now().Add(w.readTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				w.logger.Warn("read error",
					zap.String("id", w.handler.id()),
					zap.Error(err))
			}
			w.close()
			w.handler.onDisconnect(err)
			return
		}

		w.handler.onMessage(ctx, msg)
	}
}

func (w *worker) pingLoop(ctx context.Context, done <-chan struct{}) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := w.ping(); err != nil {
				w.logger.Warn("ping failed",
					zap.String("id", w.handler.id()),
					zap.Error(err))
				w.close()
				return
			}
		}
	}
}

func (w *worker) ping() error {
	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()
	if c == nil {
		return errNotConnected
	}
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait))
}

// write sends one text frame; writes are serialized.
func (w *worker) write(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()
	if c == nil {
		return errNotConnected
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func (w *worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
