package payment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// readiness is a one-shot future: the load callback resolves it, the timer rejects it.
type readiness struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newReadiness() *readiness {
	return &readiness{done: make(chan struct{})}
}

func (r *readiness) settle(err error) bool {
	settled := false
	r.once.Do(func() {
		r.err = err
		close(r.done)
		settled = true
	})
	return settled
}

func (r *readiness) failed() bool {
	select {
	case <-r.done:
		return r.err != nil
	default:
		return false
	}
}

// Loader makes a payment gateway ready once per process and lets any number
// of requests await that readiness. A rejected attempt is replaced by a new
// one on the next Preload or Await, so a shopper retry starts over.
type Loader struct {
	load    func(ctx context.Context) error
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	current *readiness
}

// NewLoader creates a loader whose attempts are rejected after
// pollInterval x pollAttempts.
func NewLoader(load func(ctx context.Context) error, pollInterval time.Duration, pollAttempts int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		load:    load,
		timeout: pollInterval * time.Duration(pollAttempts),
		logger:  logger,
	}
}

// Timeout returns the readiness budget of one attempt
func (l *Loader) Timeout() time.Duration {
	return l.timeout
}

// Preload starts loading if no attempt is pending or resolved.
func (l *Loader) Preload() {
	l.attempt()
}

func (l *Loader) attempt() *readiness {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil && !l.current.failed() {
		return l.current
	}

	r := newReadiness()
	l.current = r

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	timer := time.AfterFunc(l.timeout, func() {
		if r.settle(ErrReadyTimeout) {
			l.logger.Warn("Payment gateway readiness timed out", zap.Duration("timeout", l.timeout))
		}
	})
	start := time.Now()

	go func() {
		defer cancel()
		err := l.load(ctx)
		if r.settle(err) {
			timer.Stop()
			if err != nil {
				l.logger.Error("Payment gateway failed to load", zap.Error(err))
				return
			}
			l.logger.Info("Payment gateway ready", zap.Duration("elapsed", time.Since(start)))
		}
	}()

	return r
}

// Await blocks until the gateway is ready, the attempt is rejected, or ctx ends.
func (l *Loader) Await(ctx context.Context) error {
	r := l.attempt()
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
