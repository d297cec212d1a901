// Package events batches tree change records and delivers them to
// subscribers after a short coalescing delay.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultDelay is the coalescing window used when none is configured
const DefaultDelay = 5 * time.Millisecond

// Kind of change applied to a path
type Kind int

const (
	Created Kind = iota + 1
	Changed
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is a single record appended by a tree mutation
type Change struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// Batch is what subscribers receive: every record accumulated during one
// coalescing window, in emission order.
type Batch struct {
	ID      string    `json:"id"`
	Changes []Change  `json:"changes"`
	At      time.Time `json:"at"`
}

type subscription struct {
	ch   chan Batch
	done chan struct{}
	once sync.Once
}

// Notifier collects change records and delivers them in batches. The first
// record arms a single timer; records arriving while it is armed join the
// pending batch without re-arming it.
type Notifier struct {
	delay time.Duration

	mu      sync.Mutex // guards pending, timer, gen, closed
	pending []Change
	timer   *time.Timer
	gen     uint64 // bumped whenever the pending batch is taken
	closed  bool

	deliverMu sync.Mutex // serializes deliveries and subscriber removal
	subs      *xsync.Map[uint64, *subscription]
	lastSub   atomic.Uint64
}

// NewNotifier creates a notifier; non-positive delays fall back to DefaultDelay
func NewNotifier(delay time.Duration) *Notifier {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Notifier{
		delay: delay,
		subs:  xsync.NewMap[uint64, *subscription](),
	}
}

// Emit appends records to the pending batch, arming the timer if idle
func (n *Notifier) Emit(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pending = append(n.pending, changes...)
	if n.timer == nil {
		gen := n.gen
		n.timer = time.AfterFunc(n.delay, func() { n.fire(gen) })
	}
}

// Pending returns the number of records waiting for delivery
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Subscribe registers a receiver for future batches. Delivery blocks until
// the receiver accepts each batch, so a slow subscriber holds back later
// batches rather than losing them. cancel stops delivery and closes the
// channel; it is safe to call more than once.
func (n *Notifier) Subscribe(buffer int) (<-chan Batch, func()) {
	id := n.lastSub.Add(1)
	sub := &subscription{
		ch:   make(chan Batch, max(buffer, 0)),
		done: make(chan struct{}),
	}

	n.deliverMu.Lock()
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		n.deliverMu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	n.subs.Store(id, sub)
	n.deliverMu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			close(sub.done)
			n.deliverMu.Lock()
			defer n.deliverMu.Unlock()
			if _, ok := n.subs.LoadAndDelete(id); ok {
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Flush delivers the pending batch now instead of waiting for the timer
func (n *Notifier) Flush() {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	batch := n.takeLocked()
	n.mu.Unlock()

	n.deliverLocked(batch)
}

// Close flushes what is pending, then drops further records and closes every
// subscriber channel.
func (n *Notifier) Close() {
	n.Flush()

	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()
	n.subs.Range(func(id uint64, sub *subscription) bool {
		n.subs.Delete(id)
		close(sub.ch)
		return true
	})
}

func (n *Notifier) fire(gen uint64) {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	if gen != n.gen {
		// batch already taken by Flush
		n.mu.Unlock()
		return
	}
	batch := n.takeLocked()
	n.mu.Unlock()

	n.deliverLocked(batch)
}

func (n *Notifier) takeLocked() []Change {
	batch := n.pending
	n.pending = nil
	n.timer = nil
	n.gen++
	return batch
}

func (n *Notifier) deliverLocked(changes []Change) {
	if len(changes) == 0 {
		return
	}
	logger := util.GetLogger("Notifier.deliver")

	b := Batch{ID: uuid.NewString(), Changes: changes, At: time.Now()}
	n.subs.Range(func(_ uint64, sub *subscription) bool {
		select {
		case sub.ch <- b:
		case <-sub.done:
		}
		return true
	})
	metrics.RecordBatch(len(changes))
	logger.Trace().Str("batch", b.ID).Int("changes", len(changes)).Msg("Delivered change batch")
}
