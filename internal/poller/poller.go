// Package poller runs the periodic data feeds (cameras, alerts,
// home mode). Each task is independently scheduled, cancellable, and
// restartable; intervals are measured from the end of the previous
// run so a slow request delays the next tick instead of overlapping
// it.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/bridge"
	"github.com/technosupport/svs-client/internal/metrics"
)

// FetchFunc performs one poll request and returns the parsed payload.
type FetchFunc func(ctx context.Context) (any, error)

// Task describes one feed. Interval is consulted before every sleep,
// so configuration changes apply on the next cycle.
type Task struct {
	Name     string
	Interval func() time.Duration
	Fetch    FetchFunc
}

// FixedInterval is a convenience for tasks with a static period.
func FixedInterval(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

type taskState struct {
	task    Task
	pending *Task // re-registered while active; applied on next Start
	active  bool
	running bool          // request in flight
	stop    chan struct{} // closed on Stop; suppresses pending delivery
	kick    chan struct{} // manual refresh requests
	lastRun time.Time
}

// Set manages the poll tasks bound to one session. Results and
// failures are reported through the event bridge; a session_lost
// failure stops every task until a new session is connected and the
// login flow calls StartAll again.
type Set struct {
	bus *bridge.Bridge

	mu    sync.Mutex
	tasks map[string]*taskState
	wg    sync.WaitGroup
}

func NewSet(bus *bridge.Bridge) *Set {
	return &Set{
		bus:   bus,
		tasks: map[string]*taskState{},
	}
}

// Register adds a task definition. Registering an already-registered
// name replaces the definition the next time the task starts; a loop
// that is already running keeps its current definition until then.
func (s *Set) Register(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[task.Name]
	if !ok {
		s.tasks[task.Name] = &taskState{task: task}
		return
	}
	if st.active {
		st.pending = &task
		return
	}
	st.task = task
	st.pending = nil
}

// Start launches a task's loop. Idempotent: starting a running task
// is a no-op.
func (s *Set) Start(name string) {
	s.mu.Lock()
	st, ok := s.tasks[name]
	if !ok || st.active {
		s.mu.Unlock()
		return
	}
	if st.pending != nil {
		st.task = *st.pending
		st.pending = nil
	}
	st.active = true
	st.stop = make(chan struct{})
	st.kick = make(chan struct{}, 1)
	stop, kick := st.stop, st.kick
	s.wg.Add(1)
	s.mu.Unlock()

	// The channels are captured here so that a Stop/Start cycle while
	// a request is in flight cannot leave the old loop alive: the old
	// loop still observes its own (closed) stop channel.
	go s.run(st, stop, kick)
}

// Stop halts a task. Idempotent. An in-flight request is allowed to
// finish but its result is not delivered.
func (s *Set) Stop(name string) {
	s.mu.Lock()
	st, ok := s.tasks[name]
	if !ok || !st.active {
		s.mu.Unlock()
		return
	}
	st.active = false
	close(st.stop)
	s.mu.Unlock()
}

// StartAll starts every registered task.
func (s *Set) StartAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()
	for _, name := range names {
		s.Start(name)
	}
}

// StopAll stops every task. Used on logout and on credential expiry.
func (s *Set) StopAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()
	for _, name := range names {
		s.Stop(name)
	}
}

// Wait blocks until all task loops have exited.
func (s *Set) Wait() {
	s.wg.Wait()
}

// Trigger requests an immediate poll of a task, outside its schedule.
// If a request is already in flight the trigger is dropped, not
// queued.
func (s *Set) Trigger(name string) {
	s.mu.Lock()
	st, ok := s.tasks[name]
	if !ok || !st.active {
		s.mu.Unlock()
		return
	}
	kick := st.kick
	s.mu.Unlock()

	select {
	case kick <- struct{}{}:
	default:
	}
}

// Running reports whether a request for the task is in flight.
func (s *Set) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[name]
	return ok && st.running
}

// run is the per-task loop. The first poll fires immediately; every
// subsequent one is scheduled relative to completion of the previous.
func (s *Set) run(st *taskState, stop <-chan struct{}, kick <-chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		case <-kick:
			// Drain a concurrently-fired timer so it cannot double-run.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if s.inFlight(st) {
			// Never two requests at once; this opportunity is lost,
			// not queued.
			metrics.PollTicksSkipped.WithLabelValues(st.task.Name).Inc()
			log.Printf("[DEBUG] Poller (%s): previous request still running, tick skipped", st.task.Name)
			timer.Reset(st.task.Interval())
			continue
		}

		s.setRunning(st, true)
		payload, err := st.task.Fetch(context.Background())
		s.setRunning(st, false)

		select {
		case <-stop:
			// Stopped while the request was in flight: the request
			// completed but its result is suppressed.
			return
		default:
		}

		s.deliver(st, payload, err)

		if api.IsSessionLost(err) {
			return // deliver already stopped the set
		}

		timer.Reset(st.task.Interval())
	}
}

func (s *Set) inFlight(st *taskState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.running
}

func (s *Set) setRunning(st *taskState, v bool) {
	s.mu.Lock()
	st.running = v
	if !v {
		st.lastRun = time.Now()
	}
	s.mu.Unlock()
}

func (s *Set) deliver(st *taskState, payload any, err error) {
	if err == nil {
		metrics.PollsTotal.WithLabelValues(st.task.Name, "ok").Inc()
		s.bus.Post(bridge.PollResult{Feed: st.task.Name, Payload: payload})
		return
	}

	if api.IsSessionLost(err) {
		// The session is gone for every feed, not just this one.
		log.Printf("[ERROR] Poller (%s): session lost, stopping all tasks", st.task.Name)
		metrics.PollsTotal.WithLabelValues(st.task.Name, "session_lost").Inc()
		s.StopAll()
		s.bus.Post(bridge.CredentialExpired{})
		return
	}

	// Any other failure is reported once and the schedule continues.
	log.Printf("[ERROR] Poller (%s): poll failed: %v", st.task.Name, err)
	metrics.PollsTotal.WithLabelValues(st.task.Name, "error").Inc()
	s.bus.Post(bridge.PollResult{Feed: st.task.Name, Err: err})
}
