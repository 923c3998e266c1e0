package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/svs-client/internal/bridge"
)

type collector struct {
	bus  *bridge.Bridge
	mu   sync.Mutex
	got  []bridge.UserCommandResult
	stop func()
}

func newCollector() *collector {
	c := &collector{bus: bridge.New()}
	c.bus.Handle(func(e bridge.Event) {
		if ev, ok := e.(bridge.UserCommandResult); ok {
			c.mu.Lock()
			c.got = append(c.got, ev)
			c.mu.Unlock()
		}
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

func (c *collector) results() []bridge.UserCommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bridge.UserCommandResult, len(c.got))
	copy(out, c.got)
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

func TestSubmitDeliversResult(t *testing.T) {
	c := newCollector()
	defer c.stop()
	d := NewDispatcher(c.bus)

	h := d.Submit(context.Background(), "enable_camera", func(ctx context.Context) (any, error) {
		return "done", nil
	})
	require.NotEqual(t, "", h.ID.String())

	waitFor(t, func() bool { return len(c.results()) == 1 })
	res := c.results()[0]
	assert.Equal(t, h.ID, res.CommandID)
	assert.Equal(t, "enable_camera", res.Command)
	assert.Equal(t, "done", res.Payload)
	assert.NoError(t, res.Err)
}

func TestSubmitDeliversError(t *testing.T) {
	c := newCollector()
	defer c.stop()
	d := NewDispatcher(c.bus)

	cmdErr := errors.New("camera disabled")
	d.Submit(context.Background(), "ptz_preset", func(ctx context.Context) (any, error) {
		return nil, cmdErr
	})

	waitFor(t, func() bool { return len(c.results()) == 1 })
	assert.ErrorIs(t, c.results()[0].Err, cmdErr)
}

func TestCancelSuppressesDelivery(t *testing.T) {
	c := newCollector()
	defer c.stop()
	d := NewDispatcher(c.bus)

	release := make(chan struct{})
	h := d.Submit(context.Background(), "slow", func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	})
	h.Cancel()
	close(release)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.results(), "a cancelled command's result must be discarded")
	assert.True(t, h.Cancelled())
}

func TestCommandsRunConcurrently(t *testing.T) {
	c := newCollector()
	defer c.stop()
	d := NewDispatcher(c.bus)

	// Two commands that each wait for the other to start would
	// deadlock under serialized execution.
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	d.Submit(context.Background(), "a", func(ctx context.Context) (any, error) {
		close(aStarted)
		<-bStarted
		return nil, nil
	})
	d.Submit(context.Background(), "b", func(ctx context.Context) (any, error) {
		close(bStarted)
		<-aStarted
		return nil, nil
	})

	waitFor(t, func() bool { return len(c.results()) == 2 })
}

func TestPTZRateLimitDropsExcess(t *testing.T) {
	c := newCollector()
	defer c.stop()
	d := NewDispatcher(c.bus)

	const burst = 30
	for i := 0; i < burst; i++ {
		d.SubmitPTZ(context.Background(), "ptz_move", func(ctx context.Context) (any, error) {
			return nil, nil
		})
	}

	waitFor(t, func() bool { return len(c.results()) == burst })

	executed, dropped := 0, 0
	for _, res := range c.results() {
		if res.Err != nil {
			// A drop is distinguishable from a real command failure.
			assert.ErrorIs(t, res.Err, ErrRateLimited)
			dropped++
		} else {
			executed++
		}
	}
	assert.Greater(t, executed, 0)
	assert.Greater(t, dropped, 0, "a %d-call burst must trip the limiter", burst)
	assert.LessOrEqual(t, executed, 10, "executed moves must stay near the configured burst size")
}
