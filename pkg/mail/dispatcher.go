package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultDispatchWorkers   = 2
	defaultDispatchQueueSize = 64
	defaultDispatchTimeout   = 30 * time.Second
)

var (
	// ErrQueueFull is returned by Enqueue when no queue slot is free.
	ErrQueueFull = errors.New("mail dispatcher: queue full")
	// ErrDispatcherClosed is returned by Enqueue after Close.
	ErrDispatcherClosed = errors.New("mail dispatcher: closed")
)

// Outcome describes the result of one background delivery.
type Outcome struct {
	Message Message
	Err     error
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the number of messages that may wait for a worker.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithSendTimeout bounds each delivery attempt.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger overrides the dispatcher logger.
func WithLogger(log *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithOutcomeHook registers a callback invoked after every delivery attempt.
func WithOutcomeHook(hook func(Outcome)) DispatcherOption {
	return func(d *Dispatcher) {
		d.hook = hook
	}
}

// Dispatcher delivers messages in the background on a fixed pool of workers.
// Callers hand off messages and never observe the delivery result; failures
// are logged and reported to the optional outcome hook.
type Dispatcher struct {
	mailer    Mailer
	workers   int
	queueSize int
	timeout   time.Duration
	log       *zap.Logger
	hook      func(Outcome)

	queue  chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool over mailer.
func NewDispatcher(mailer Mailer, opts ...DispatcherOption) (*Dispatcher, error) {
	if mailer == nil {
		return nil, errors.New("mail dispatcher: mailer is required")
	}

	d := &Dispatcher{
		mailer:    mailer,
		workers:   defaultDispatchWorkers,
		queueSize: defaultDispatchQueueSize,
		timeout:   defaultDispatchTimeout,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.queue = make(chan Message, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d, nil
}

// Enqueue schedules msg for delivery without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send satisfies Mailer by enqueueing msg, so a Dispatcher can stand in for a synchronous mailer.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	return d.Enqueue(msg)
}

// Close stops accepting messages and waits for queued deliveries to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.mailer.Send(ctx, msg)
		cancel()

		switch {
		case err == nil:
			d.log.Debug("email delivered", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		case errors.Is(err, ErrSMTPDisabled):
			d.log.Debug("email skipped; smtp disabled", zap.Strings("to", msg.To))
		default:
			d.log.Warn("email delivery failed", zap.Strings("to", msg.To), zap.Error(err))
		}

		if d.hook != nil {
			d.hook(Outcome{Message: msg, Err: err})
		}
	}
}
