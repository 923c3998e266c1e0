package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/bridge"
)

// collector runs a bridge dispatch loop and records every event.
type collector struct {
	bus  *bridge.Bridge
	mu   sync.Mutex
	got  []bridge.Event
	stop func()
}

func newCollector() *collector {
	c := &collector{bus: bridge.New()}
	c.bus.Handle(func(e bridge.Event) {
		c.mu.Lock()
		c.got = append(c.got, e)
		c.mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.bus.Run(ctx)
	}()
	c.stop = func() {
		cancel()
		c.bus.Post(bridge.CredentialExpired{})
		<-done
	}
	return c
}

func (c *collector) events() []bridge.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bridge.Event, len(c.got))
	copy(out, c.got)
	return out
}

func (c *collector) pollResults(feed string) []bridge.PollResult {
	var out []bridge.PollResult
	for _, e := range c.events() {
		if pr, ok := e.(bridge.PollResult); ok && pr.Feed == feed {
			out = append(out, pr)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestFirstPollFiresImmediately(t *testing.T) {
	c := newCollector()
	defer c.stop()

	var calls atomic.Int32
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			calls.Add(1)
			return "payload", nil
		},
	})
	set.Start("cameras")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool { return len(c.pollResults("cameras")) == 1 })
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "payload", c.pollResults("cameras")[0].Payload)
}

func TestIntervalMeasuredFromCompletion(t *testing.T) {
	c := newCollector()
	defer c.stop()

	var mu sync.Mutex
	var starts []time.Time
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "slow",
		Interval: FixedInterval(50 * time.Millisecond),
		Fetch: func(ctx context.Context) (any, error) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			time.Sleep(80 * time.Millisecond) // longer than the interval
			return nil, nil
		},
	})
	set.Start("slow")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < 3; i++ {
		gap := starts[i].Sub(starts[i-1])
		// 80ms run + 50ms interval: consecutive starts must be at
		// least the run duration apart, proving no overlap.
		assert.GreaterOrEqual(t, gap, 100*time.Millisecond, "start %d overlapped the previous run", i)
	}
}

func TestTriggerSkippedWhileInFlight(t *testing.T) {
	c := newCollector()
	defer c.stop()

	var calls atomic.Int32
	release := make(chan struct{})
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			calls.Add(1)
			<-release
			return nil, nil
		},
	})
	set.Start("cameras")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool { return set.Running("cameras") })

	// Triggers while a request is in flight are dropped, not queued.
	set.Trigger("cameras")
	set.Trigger("cameras")
	close(release)

	// The kick channel holds one pending trigger, so at most one extra
	// run may happen; it must not be one per trigger.
	waitFor(t, func() bool { return len(c.pollResults("cameras")) >= 1 })
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestStopSuppressesInFlightResult(t *testing.T) {
	c := newCollector()
	defer c.stop()

	started := make(chan struct{})
	release := make(chan struct{})
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "late", nil
		},
	})
	set.Start("cameras")

	<-started
	set.Stop("cameras")
	close(release)
	set.Wait()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.pollResults("cameras"), "result of an in-flight request must not be delivered after Stop")
}

func TestStopStartWhileInFlight(t *testing.T) {
	c := newCollector()
	defer c.stop()

	var calls atomic.Int32
	release := make(chan struct{})
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			n := calls.Add(1)
			if n == 1 {
				<-release
			}
			return n, nil
		},
	})
	set.Start("cameras")
	waitFor(t, func() bool { return set.Running("cameras") })

	// Restart while the first request is still in flight. The old
	// loop must exit without delivering; the new loop runs normally.
	set.Stop("cameras")
	set.Start("cameras")
	close(release)

	waitFor(t, func() bool { return len(c.pollResults("cameras")) >= 1 })
	for _, pr := range c.pollResults("cameras") {
		assert.NotEqual(t, 1, pr.Payload, "suppressed first result leaked through")
	}

	set.StopAll()
	set.Wait()
}

func TestFetchErrorReportedAndScheduleContinues(t *testing.T) {
	c := newCollector()
	defer c.stop()

	fetchErr := errors.New("backend unavailable")
	var calls atomic.Int32
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "alerts",
		Interval: FixedInterval(10 * time.Millisecond),
		Fetch: func(ctx context.Context) (any, error) {
			if calls.Add(1) == 1 {
				return nil, fetchErr
			}
			return "ok", nil
		},
	})
	set.Start("alerts")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool { return len(c.pollResults("alerts")) >= 2 })

	results := c.pollResults("alerts")
	assert.ErrorIs(t, results[0].Err, fetchErr)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "ok", results[1].Payload)
}

func TestSessionLostStopsAllTasks(t *testing.T) {
	c := newCollector()
	defer c.stop()

	lost := &api.ApiError{Kind: api.KindSessionLost}

	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(10 * time.Millisecond),
		Fetch: func(ctx context.Context) (any, error) {
			return nil, lost
		},
	})
	var otherCalls atomic.Int32
	set.Register(Task{
		Name:     "homemode",
		Interval: FixedInterval(10 * time.Millisecond),
		Fetch: func(ctx context.Context) (any, error) {
			otherCalls.Add(1)
			return "mode", nil
		},
	})
	set.StartAll()

	set.Wait() // both loops must exit on their own

	var expired int
	for _, e := range c.events() {
		if _, ok := e.(bridge.CredentialExpired); ok {
			expired++
		}
	}
	assert.Equal(t, 1, expired, "session loss must surface exactly one credential event")
	assert.False(t, set.Running("cameras"))
	assert.False(t, set.Running("homemode"))

	// No session_lost PollResult: the failure is reported through
	// CredentialExpired instead.
	for _, pr := range c.pollResults("cameras") {
		assert.NoError(t, pr.Err)
	}
}

func TestRegisterWhileActiveAppliesOnRestart(t *testing.T) {
	c := newCollector()
	defer c.stop()

	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			return "old", nil
		},
	})
	set.Start("cameras")
	waitFor(t, func() bool { return len(c.pollResults("cameras")) >= 1 })

	// Re-registering a running task must not be lost: the new
	// definition takes over on the next Start.
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			return "new", nil
		},
	})
	set.Stop("cameras")
	set.Start("cameras")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool {
		results := c.pollResults("cameras")
		return len(results) >= 2 && results[len(results)-1].Payload == "new"
	})
}

func TestStartIsIdempotent(t *testing.T) {
	c := newCollector()
	defer c.stop()

	var calls atomic.Int32
	set := NewSet(c.bus)
	set.Register(Task{
		Name:     "cameras",
		Interval: FixedInterval(time.Hour),
		Fetch: func(ctx context.Context) (any, error) {
			calls.Add(1)
			return nil, nil
		},
	})
	set.Start("cameras")
	set.Start("cameras")
	set.Start("cameras")
	defer func() { set.StopAll(); set.Wait() }()

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "double Start must not spawn a second loop")
}
