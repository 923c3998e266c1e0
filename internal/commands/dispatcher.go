// Package commands runs user-initiated API calls off the UI loop.
// The caller gets a cancellable handle immediately; the outcome comes
// back later as a UserCommandResult bridge event.
package commands

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/technosupport/svs-client/internal/bridge"
	"github.com/technosupport/svs-client/internal/metrics"
)

// CommandFunc is the body of one command; it typically wraps a
// services call through the session.
type CommandFunc func(ctx context.Context) (any, error)

// Handle identifies one in-flight command.
type Handle struct {
	ID        uuid.UUID
	Name      string
	cancelled atomic.Bool
}

// Cancel suppresses result delivery. The network call, if already
// sent, is not aborted; its response is simply discarded.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}

// ErrRateLimited is the result error of a PTZ command dropped by the
// rate limiter. The command never reached the server.
var ErrRateLimited = errors.New("command dropped by rate limiter")

// PTZ move commands arrive as fast as the user can hold a button;
// cap what actually reaches the server.
const (
	ptzRatePerSecond = 8
	ptzBurst         = 4
)

// Dispatcher executes commands concurrently. Commands are
// independent: no ordering guarantee exists between two in-flight
// commands. Callers needing a sequence await each result before
// issuing the next.
type Dispatcher struct {
	bus        *bridge.Bridge
	ptzLimiter *rate.Limiter
}

func NewDispatcher(bus *bridge.Bridge) *Dispatcher {
	return &Dispatcher{
		bus:        bus,
		ptzLimiter: rate.NewLimiter(rate.Limit(ptzRatePerSecond), ptzBurst),
	}
}

// Submit starts a command and returns its handle immediately.
func (d *Dispatcher) Submit(ctx context.Context, name string, fn CommandFunc) *Handle {
	h := &Handle{ID: uuid.New(), Name: name}
	go d.execute(ctx, h, fn)
	return h
}

// SubmitPTZ is Submit behind the PTZ rate limiter. Calls beyond the
// allowance are dropped immediately with a result event, never queued
// (a stale PTZ move is worse than no move).
func (d *Dispatcher) SubmitPTZ(ctx context.Context, name string, fn CommandFunc) *Handle {
	h := &Handle{ID: uuid.New(), Name: name}
	if !d.ptzLimiter.Allow() {
		log.Printf("[DEBUG] Commands: %s dropped by PTZ rate limit", name)
		metrics.CommandsTotal.WithLabelValues(name, "rate_limited").Inc()
		d.post(h, bridge.UserCommandResult{
			CommandID: h.ID,
			Command:   name,
			Err:       ErrRateLimited,
		})
		return h
	}
	go d.execute(ctx, h, fn)
	return h
}

func (d *Dispatcher) execute(ctx context.Context, h *Handle, fn CommandFunc) {
	payload, err := fn(ctx)

	if err != nil {
		log.Printf("[ERROR] Commands: %s failed: %v", h.Name, err)
		metrics.CommandsTotal.WithLabelValues(h.Name, "error").Inc()
	} else {
		metrics.CommandsTotal.WithLabelValues(h.Name, "ok").Inc()
	}

	d.post(h, bridge.UserCommandResult{
		CommandID: h.ID,
		Command:   h.Name,
		Payload:   payload,
		Err:       err,
	})
}

// post delivers the result unless the handle was cancelled first.
func (d *Dispatcher) post(h *Handle, ev bridge.UserCommandResult) {
	if h.Cancelled() {
		metrics.CommandsTotal.WithLabelValues(h.Name, "cancelled").Inc()
		return
	}
	d.bus.Post(ev)
}
