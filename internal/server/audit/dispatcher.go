package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/google/uuid"
)

const (
	DefaultBufferSize   = 1024
	DefaultWriteTimeout = 5 * time.Second
)

type Config struct {
	BufferSize   int
	WriteTimeout time.Duration
}

// Dispatcher queues entries in a bounded buffer drained by one background
// worker. Record never blocks: a full buffer drops the entry and counts it.
type Dispatcher struct {
	sink    Sink
	logger  logging.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan *models.AuditEntry
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64

	closeOnce sync.Once
}

func NewDispatcher(sink Sink, cfg Config, logger logging.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	d := &Dispatcher{
		sink:    sink,
		logger:  logger.With("component", "audit"),
		timeout: cfg.WriteTimeout,
		now:     time.Now,
		queue:   make(chan *models.AuditEntry, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Record enqueues e. Missing id, type and timestamp are filled in.
func (d *Dispatcher) Record(ctx context.Context, e models.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" {
		e.Type = common.AuditTypeAuth
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = d.now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- &e:
	default:
		d.dropped.Add(1)
		d.logger.Warn(ctx, "audit buffer full, entry dropped", "action", e.Action, "username", e.Username)
	}
}

// Dropped is the number of entries discarded because the buffer was full
// or the dispatcher was closed.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Failed is the number of entries the sink rejected.
func (d *Dispatcher) Failed() uint64 {
	return d.failed.Load()
}

// Close stops accepting entries and waits until the buffer is flushed.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		d.write(e)
	}
}

func (d *Dispatcher) write(e *models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Create(ctx, e); err != nil {
		d.failed.Add(1)
		d.logger.Error(ctx, "audit write failed", "err", err, "action", e.Action, "username", e.Username)
	}
}
