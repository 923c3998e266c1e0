// Package bridge is the single-threaded delivery path between the
// client's concurrency domains. Network goroutines, pollers, and the
// media sink's native callback threads all hand off state changes by
// posting an Event; one dispatch loop delivers them, in post order, to
// the handlers owned by the UI-owning goroutine.
//
// Post never blocks and never drops under normal operation (the queue
// is bounded only by memory). Filtering happens at dispatch time so a
// widget being torn down can deregister its camera or feed and any
// in-flight result is discarded instead of resurrecting a dead
// handler.
package bridge

import (
	"context"
	"log"
	"sync"

	"github.com/technosupport/svs-client/internal/metrics"
)

// Handler consumes dispatched events. Handlers run one event at a
// time on the goroutine that called Run; they must not block on
// network I/O.
type Handler func(Event)

// Stats is a snapshot of bridge counters.
type Stats struct {
	Posted     uint64
	Dispatched uint64
	Dropped    uint64
}

type Bridge struct {
	mu    sync.Mutex
	queue []Event
	wake  chan struct{}

	handlers []Handler

	mutedCameras map[int]bool
	mutedFeeds   map[string]bool

	stats Stats
}

func New() *Bridge {
	return &Bridge{
		wake:         make(chan struct{}, 1),
		mutedCameras: map[int]bool{},
		mutedFeeds:   map[string]bool{},
	}
}

// Handle registers a handler. Registration happens on the UI
// goroutine before Run starts; it is not safe concurrently with Run.
func (b *Bridge) Handle(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Post enqueues an event from any goroutine, including threads the Go
// scheduler does not own (cgo media callbacks). It never blocks.
func (b *Bridge) Post(e Event) {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	b.stats.Posted++
	// Published under mu so concurrent posts cannot publish depths out
	// of order; next() does the same on the dequeue side.
	metrics.BridgeQueueDepth.Set(float64(len(b.queue)))
	b.mu.Unlock()

	metrics.BridgePosted.Inc()

	select {
	case b.wake <- struct{}{}:
	default: // dispatcher already has a pending wakeup
	}
}

// DropCamera deregisters interest in a camera. Queued and future
// events targeting it are discarded at dispatch time.
func (b *Bridge) DropCamera(id int) {
	b.mu.Lock()
	b.mutedCameras[id] = true
	b.mu.Unlock()
}

// RestoreCamera re-registers interest in a camera.
func (b *Bridge) RestoreCamera(id int) {
	b.mu.Lock()
	delete(b.mutedCameras, id)
	b.mu.Unlock()
}

// DropFeed deregisters interest in a poll feed.
func (b *Bridge) DropFeed(name string) {
	b.mu.Lock()
	b.mutedFeeds[name] = true
	b.mu.Unlock()
}

// RestoreFeed re-registers interest in a poll feed.
func (b *Bridge) RestoreFeed(name string) {
	b.mu.Lock()
	delete(b.mutedFeeds, name)
	b.mu.Unlock()
}

func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// next pops the head of the queue. ok is false when the queue is
// empty.
func (b *Bridge) next() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	e := b.queue[0]
	b.queue = b.queue[1:]
	metrics.BridgeQueueDepth.Set(float64(len(b.queue)))
	return e, true
}

// muted decides, at dispatch time, whether the event's target has
// been deregistered.
func (b *Bridge) muted(e Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := eventCamera(e); ok && b.mutedCameras[id] {
		b.stats.Dropped++
		return true
	}
	if feed, ok := eventFeed(e); ok && b.mutedFeeds[feed] {
		b.stats.Dropped++
		return true
	}
	return false
}

// Run is the dispatch loop. It is the only place handlers execute, so
// no two handlers ever run concurrently and no handler is preempted
// by another bridge event mid-execution. Events are delivered
// strictly in post order. Run returns when ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		e, ok := b.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-b.wake:
				continue
			}
		}

		if b.muted(e) {
			metrics.BridgeDropped.Inc()
			continue
		}

		b.dispatch(e)

		// Check for cancellation between events, never mid-handler.
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (b *Bridge) dispatch(e Event) {
	defer func() {
		if r := recover(); r != nil {
			// A handler panic degrades one update, never the loop.
			log.Printf("[ERROR] Bridge: handler panic on %s event: %v", e.kind(), r)
		}
	}()

	b.mu.Lock()
	b.stats.Dispatched++
	handlers := b.handlers
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
