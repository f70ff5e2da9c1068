package report

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/joe/dropsentry/internal/events"
)

// Exported constants.
const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultQueueSize   = 64
	DefaultSendTimeout = 10 * time.Second
)

// Exported variables.
var (
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// Dispatcher is a bounded outbound queue in front of a Channel. A single
// goroutine drains the queue and starts at most one send per pacing interval,
// measured from the previous send, so event handlers never block on the
// channel itself.
type Dispatcher struct {
	channel     Channel
	interval    time.Duration
	sendTimeout time.Duration
	clock       TimeProvider
	logger      *zap.Logger
	emitter     events.Emitter

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	closing  chan struct{}
	queue    chan Message
	abort    chan struct{}
	done     chan struct{}

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

// NewDispatcher starts a dispatcher sending to channel.
func NewDispatcher(channel Channel, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		interval:    DefaultInterval,
		queueSize:   DefaultQueueSize,
		sendTimeout: DefaultSendTimeout,
		clock:       &RealTimeProvider{},
		logger:      zap.NewNop(),
		emitter:     events.Discard,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Dispatcher{
		channel:     channel,
		interval:    cfg.interval,
		sendTimeout: cfg.sendTimeout,
		clock:       cfg.clock,
		logger:      cfg.logger,
		emitter:     cfg.emitter,
		closing:     make(chan struct{}),
		queue:       make(chan Message, cfg.queueSize),
		abort:       make(chan struct{}),
		done:        make(chan struct{}),
	}

	go d.run()

	return d
}

// Close stops intake and waits until every queued message was sent. If ctx
// ends first, the remaining messages are dropped and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.closing)
		d.mu.Unlock()

		d.inflight.Wait()
		close(d.queue)
	} else {
		d.mu.Unlock()
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.abortOnce()
		<-d.done

		return ctx.Err()
	}
}

// Deliver enqueues msg. It blocks only while the queue is full, and returns
// ctx's error if ctx ends first or ErrDispatcherClosed once Close was called.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	d.inflight.Add(1)
	d.mu.RUnlock()

	defer d.inflight.Done()

	select {
	case d.queue <- msg:
		d.emitter.Emit(events.ReportQueued{Kind: msg.Kind(), Records: msg.Records()})
		return nil
	case <-d.closing:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many messages were delivered, failed and dropped so far.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Delivered: int(d.delivered.Load()),
		Failed:    int(d.failed.Load()),
		Dropped:   int(d.dropped.Load()),
	}
}

// DispatchStats counts message outcomes.
type DispatchStats struct {
	Delivered int
	Failed    int
	Dropped   int
}

// WithClock injects the time provider used for pacing.
func WithClock(clock TimeProvider) DispatcherOption {
	return func(c *dispatcherConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDispatchEmitter sets the lifecycle event emitter.
func WithDispatchEmitter(emitter events.Emitter) DispatcherOption {
	return func(c *dispatcherConfig) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(logger *zap.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInterval sets the pacing interval. A non-positive interval disables pacing.
func WithInterval(interval time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.interval = interval
	}
}

// WithQueueSize sets the outbound queue capacity (minimum 1).
func WithQueueSize(size int) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.queueSize = max(size, 1)
	}
}

// WithSendTimeout bounds a single Channel.Send call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.sendTimeout = timeout
	}
}

type dispatcherConfig struct {
	interval    time.Duration
	queueSize   int
	sendTimeout time.Duration
	clock       TimeProvider
	logger      *zap.Logger
	emitter     events.Emitter
}

func (d *Dispatcher) abortOnce() {
	select {
	case <-d.abort:
	default:
		close(d.abort)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	var (
		lastSent time.Time
		sent     bool
	)

	for msg := range d.queue {
		if sent && d.interval > 0 {
			wait := d.interval - d.clock.Now().Sub(lastSent)
			if wait > 0 && !d.pause(wait) {
				d.drop(msg)
				continue
			}
		}

		select {
		case <-d.abort:
			d.drop(msg)
			continue
		default:
		}

		lastSent = d.clock.Now()
		sent = true

		d.send(msg)
	}
}

// pause blocks for wait or until the dispatcher is aborted. It returns false on abort.
func (d *Dispatcher) pause(wait time.Duration) bool {
	timer := d.clock.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C():
		return true
	case <-d.abort:
		return false
	}
}

func (d *Dispatcher) drop(msg Message) {
	d.dropped.Add(1)
	d.logger.Warn("report dropped", zap.String("kind", msg.Kind()), zap.Int("records", msg.Records()))
	d.emitter.Emit(events.DeliveryFailed{Kind: msg.Kind(), Err: ErrDispatcherClosed})
}

func (d *Dispatcher) send(msg Message) {
	ctx := context.Background()

	if d.sendTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	if err := d.channel.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error("report delivery failed",
			zap.String("kind", msg.Kind()),
			zap.Int("records", msg.Records()),
			zap.Error(err),
		)
		d.emitter.Emit(events.DeliveryFailed{Kind: msg.Kind(), Err: err})

		return
	}

	d.delivered.Add(1)
	d.logger.Info("report sent",
		zap.String("kind", msg.Kind()),
		zap.Int("records", msg.Records()),
		zap.Time("at", d.clock.Now()),
	)
	d.emitter.Emit(events.ReportDelivered{Kind: msg.Kind(), Records: msg.Records()})
}
