package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output"
)

const (
	defaultBufferSize   = 64
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 64.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithLogger sets the logger used for inner write failures and drain timeouts.
func WithLogger(log *zap.Logger) Option {
	return func(a *Async) {
		if log != nil {
			a.log = log
		}
	}
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// Async moves report delivery onto a background goroutine so a slow
// destination does not hold up analysis. Inner write errors go to errFunc
// rather than to the caller.
type Async struct {
	inner   output.Output
	ch      chan model.Report
	done    chan struct{}
	log     *zap.Logger
	errFunc func(error)
	bufSize int

	mu     sync.RWMutex
	closed bool
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errFunc == nil {
		a.errFunc = func(err error) { a.log.Warn("async output write failed", zap.Error(err)) }
	}
	a.ch = make(chan model.Report, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the report. It blocks while the buffer is full and gives up
// when ctx is cancelled.
func (a *Async) Write(ctx context.Context, report model.Report) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.ch <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting reports, waits for queued ones to be delivered
// (bounded by a timeout) and closes the inner output. Later calls are no-ops.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(defaultDrainTimeout):
		a.log.Warn("async output drain timed out", zap.Int("pending", len(a.ch)))
	}
	return a.inner.Close()
}

func (a *Async) drain() {
	defer close(a.done)
	for report := range a.ch {
		if err := a.inner.Write(context.Background(), report); err != nil {
			a.errFunc(err)
		}
	}
}
