// Package activity fans field activity (placed markers, completed sessions)
// out to sinks such as InfluxDB without holding up the caller.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agrosync/fieldops/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Kind names an activity event.
type Kind string

const (
	KindMarkerPlaced     Kind = "marker_placed"
	KindSessionCompleted Kind = "session_completed"
)

var (
	// ErrQueueFull is returned when a non-blocking buffered handler drops an event.
	ErrQueueFull = errors.New("activity queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("activity dispatcher closed")
)

// Event is one piece of field activity.
type Event struct {
	Kind    Kind
	Time    time.Time
	Marker  *core.Marker
	Session *core.Session
	// Markers is the marker count of a completed session.
	Markers int
}

// HandlerFunc processes an event.
type HandlerFunc func(ctx context.Context, e Event) error

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type queued struct {
	ctx context.Context
	e   Event
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[Kind]HandlerFunc
	logger   *slog.Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	buffers map[Kind]chan queued
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Dispatcher reporting to the global OTel meter.
func New(logger *slog.Logger) (*Dispatcher, error) {
	return NewWithMeter(logger, meter())
}

// NewWithMeter creates a Dispatcher reporting to m.
func NewWithMeter(logger *slog.Logger, m metric.Meter) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handlers: make(map[Kind]HandlerFunc),
		buffers:  make(map[Kind]chan queued),
		logger:   logger,
	}

	var err error
	d.queueSize, err = m.Int64ObservableGauge(
		"fieldops.activity.queue.size",
		metric.WithDescription("Current number of activity events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("kind", string(kind))))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"fieldops.activity.processed",
		metric.WithDescription("Total activity events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"fieldops.activity.dropped",
		metric.WithDescription("Total activity events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds the handler for kind. Registering a kind twice replaces the handler.
func (d *Dispatcher) Register(kind Kind, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}
	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[kind] = handler
	d.mu.Unlock()
}

// HasHandler returns true if a handler is registered for kind.
func (d *Dispatcher) HasHandler(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[kind]
	return ok
}

// Dispatch routes e to its handler. Buffered handlers return once the event is queued.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	h, ok := d.handlers[e.Kind]
	if !ok {
		return fmt.Errorf("no activity handler for %s", e.Kind)
	}
	return h(ctx, e)
}

// Close stops accepting events and waits until the queues are drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(kind Kind, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan queued, size)

	d.mu.Lock()
	d.buffers[kind] = buffer
	d.mu.Unlock()

	kindAttr := metric.WithAttributes(attribute.String("kind", string(kind)))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for q := range buffer {
			if err := h(q.ctx, q.e); err != nil {
				d.logger.Warn("Activity handler failed", "kind", kind, "error", err)
			}
			d.processed.Add(context.Background(), 1, kindAttr)
		}
	}()

	if blocking {
		return func(ctx context.Context, e Event) error {
			buffer <- queued{ctx: context.WithoutCancel(ctx), e: e}
			return nil
		}
	}

	return func(ctx context.Context, e Event) error {
		select {
		case buffer <- queued{ctx: context.WithoutCancel(ctx), e: e}:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, kindAttr)
			return fmt.Errorf("%w: %s", ErrQueueFull, kind)
		}
	}
}

func (d *Dispatcher) withLogging(kind Kind, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) error {
		start := time.Now()
		d.logger.DebugContext(ctx, "Handling activity", "kind", kind)

		err := h(ctx, e)
		if err != nil {
			d.logger.ErrorContext(ctx, "Activity failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.DebugContext(ctx, "Activity recorded", "kind", kind, "duration", time.Since(start))
		}
		return err
	}
}
