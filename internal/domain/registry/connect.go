package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
	"github.com/google/uuid"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the session handle the registry binds to a user. External
// layers (gateway, dispatcher) only ever see this interface.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() string
	Send(ev model.Eventer, timeout time.Duration) bool
	Recv() <-chan model.Eventer
	Close()
}

type connect struct {
	id     uuid.UUID
	userID string

	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// mu orders Send against Close: the mailbox is only closed under the
	// write lock, so no in-flight Send can hit a closed channel.
	mu     sync.RWMutex
	closed bool
	sendCh chan model.Eventer

	closeOnce    sync.Once
	droppedCount uint64 // atomic
}

// NewConnector builds a session handle with a fresh mailbox.
func NewConnector(ctx context.Context, userID string, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)

	return &connect{
		id:        uuid.New(),
		userID:    userID,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan model.Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID  { return c.id }
func (c *connect) GetUserID() string { return c.userID }

// Send enqueues an event into the session mailbox, waiting up to timeout
// for buffer space so transient consumer jitter does not drop messages.
func (c *connect) Send(ev model.Eventer, timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	case <-ctx.Done():
		return c.handleBackpressure(ev)
	}
}

// handleBackpressure sheds load from a saturated mailbox: low-priority
// events are dropped, a high-priority event may evict a lower-priority one.
// Called under the read lock, so the mailbox cannot close mid-swap.
func (c *connect) handleBackpressure(ev model.Eventer) bool {
	if ev.GetPriority() <= model.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			select {
			case c.sendCh <- ev:
				return true
			default:
			}
		} else {
			// Put the equally important event back, best effort.
			select {
			case c.sendCh <- oldEv:
			default:
			}
		}
	default:
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connect) Recv() <-chan model.Eventer { return c.sendCh }

// Close terminates the session exactly once. The context is cancelled
// before the write lock is taken so a Send parked on a full mailbox
// unblocks instead of holding the lock for its whole timeout. The closed
// mailbox is the signal the transport pump exits on.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()

		c.mu.Lock()
		c.closed = true
		close(c.sendCh)
		c.mu.Unlock()
	})
}
