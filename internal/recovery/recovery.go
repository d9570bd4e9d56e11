// Package recovery drives reconnection attempts with randomized exponential
// backoff.
//
// A Controller does not connect anything itself. It tells its Notifier when
// an attempt should be made (EventAttempt) and expects the caller to report
// the outcome through Succeeded or Failed before the attempt times out.
//
//	IDLE -> SCHEDULED -> ATTEMPTING -> SUCCESS
//	                         |     \-> SCHEDULED (failure or timeout)
//	                         \-> EXHAUSTED (MaxRetries reached)
package recovery

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Events emitted on the Notifier.
const (
	EventScheduled        = "scheduled"         // Attempt
	EventAttempt          = "attempt"           // Attempt
	EventAttemptTimeout   = "attempt-timeout"   // error, Attempt
	EventPermanentFailure = "permanent-failure" // error, Attempt
	EventSuccess          = "success"           // Attempt
)

// Timer names owned by the controller.
const (
	TimerReconnect = "reconnect"
	TimerTimeout   = "timeout"
)

// Scheduler runs named delayed callbacks. Scheduling a name that is already
// pending replaces it; Cancel without names cancels everything.
type Scheduler interface {
	After(name string, d time.Duration, fn func())
	Cancel(names ...string)
	Active(name string) bool
}

// Notifier receives controller events. Emit must not block for long.
type Notifier interface {
	Emit(event string, payload ...any)
}

// Attempt describes the current recovery cycle. Events carry copies.
type Attempt struct {
	Config

	CycleID   uuid.UUID
	Number    int           // attempts made in this cycle
	StartedAt time.Time     // start of the cycle
	Elapsed   time.Duration // time since StartedAt at the last event
	InBackoff bool          // a delay is pending
	Scheduled time.Duration // delay chosen for the current round
}

// handle identifies a pending attempt or an armed backoff round. Zero means
// none.
type handle uint64

type emission struct {
	event   string
	payload []any
}

// Controller runs recovery cycles. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	defaults  Config
	overrides Overrides
	notifier  Notifier
	timers    Scheduler
	clock     clockwork.Clock
	random    func() float64
	log       *zap.Logger

	attempt   *Attempt
	exhausted bool
	round     handle // armed reconnect timer
	pending   handle // completion handle of the running attempt
	seq       handle
	gen       uint64 // bumped by every reset
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig replaces DefaultConfig as the lowest tier of settings.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.defaults = cfg }
}

// WithOverrides sets the instance tier of settings.
func WithOverrides(o Overrides) Option {
	return func(c *Controller) { c.overrides = o }
}

// WithClock sets the clock used for elapsed times.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRand sets the jitter source. It must return values in [0,1).
func WithRand(random func() float64) Option {
	return func(c *Controller) { c.random = random }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New creates an idle Controller.
func New(notifier Notifier, timers Scheduler, opts ...Option) *Controller {
	c := &Controller{
		defaults: DefaultConfig(),
		notifier: notifier,
		timers:   timers,
		clock:    clockwork.NewRealClock(),
		random:   rand.Float64,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOverrides replaces the instance tier of settings. Running cycles keep
// the settings they were started with.
func (c *Controller) SetOverrides(o Overrides) {
	c.mu.Lock()
	c.overrides = o
	c.mu.Unlock()
}

// Reconnect starts a recovery cycle. It does nothing while a cycle is
// active, whether backing off, attempting or exhausted.
func (c *Controller) Reconnect() {
	c.ReconnectWith(Overrides{})
}

// ReconnectWith is Reconnect with per-call overrides that take precedence
// over the instance and default settings of a new cycle.
func (c *Controller) ReconnectWith(o Overrides) {
	c.mu.Lock()
	if c.attempt != nil {
		c.mu.Unlock()
		return
	}
	out := c.backoff(o)
	c.release(out)
}

// Failed reports that the pending attempt failed. A nil err is reported as
// ErrAttemptFailed. It returns false when no attempt was pending.
func (c *Controller) Failed(err error) bool {
	c.mu.Lock()
	h := c.pending
	if h == 0 {
		c.mu.Unlock()
		return false
	}
	out := c.settle(h, &AttemptFailedError{Attempt: c.attempt.Number, Cause: err})
	c.release(out)
	return true
}

// Succeeded reports that the pending attempt succeeded. It returns false when
// no attempt was pending.
func (c *Controller) Succeeded() bool {
	c.mu.Lock()
	h := c.pending
	if h == 0 {
		c.mu.Unlock()
		return false
	}
	out := c.settle(h, nil)
	c.release(out)
	return true
}

// Reset abandons the current cycle and cancels both timers.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
}

// Active reports whether a cycle is in progress.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt != nil
}

// Attempt returns a copy of the current cycle record.
func (c *Controller) Attempt() (Attempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil {
		return Attempt{}, false
	}
	return *c.attempt, true
}

// Destroy resets the controller and detaches its notifier for good. It
// returns false if the controller was already destroyed.
func (c *Controller) Destroy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifier == nil {
		return false
	}
	c.reset()
	c.notifier = nil
	return true
}

// backoff starts the next round of the current cycle, or a new cycle with
// overrides o. Only ReconnectWith and a failed settle get here, so no round
// is armed and no attempt is pending. Callers hold c.mu.
func (c *Controller) backoff(o Overrides) []emission {
	if c.notifier == nil || c.exhausted {
		return nil
	}

	a := c.attempt
	if a == nil {
		a = &Attempt{
			Config:    o.Apply(c.overrides.Apply(c.defaults)),
			CycleID:   uuid.New(),
			StartedAt: c.clock.Now(),
		}
		c.attempt = a
	}

	if a.Number >= a.MaxRetries {
		c.exhausted = true
		c.pending, c.round = 0, 0
		c.timers.Cancel(TimerReconnect, TimerTimeout)
		a.Elapsed = c.since(a)

		c.log.Warn("recovery exhausted",
			zap.Stringer("cycle", a.CycleID),
			zap.Int("attempts", a.Number),
			zap.Duration("elapsed", a.Elapsed))

		err := &RecoveryExhaustedError{Attempts: a.Number, Elapsed: a.Elapsed}
		return []emission{{EventPermanentFailure, []any{err, *a}}}
	}

	if a.Number == 0 {
		a.Elapsed = 0
	} else {
		a.Elapsed = c.since(a)
	}
	a.InBackoff = true
	a.Number++
	a.Scheduled = nextDelay(a.Config, a.Number, c.random)

	round := c.next()
	c.round = round
	c.timers.After(TimerReconnect, a.Scheduled, func() { c.fire(round) })

	c.log.Debug("reconnect scheduled",
		zap.Stringer("cycle", a.CycleID),
		zap.Int("attempt", a.Number),
		zap.Duration("delay", a.Scheduled))

	return []emission{{EventScheduled, []any{*a}}}
}

// fire ends the backoff delay of round and hands an attempt to the caller.
func (c *Controller) fire(round handle) {
	c.mu.Lock()
	a := c.attempt
	if a == nil || c.notifier == nil || c.round != round {
		c.mu.Unlock()
		return
	}

	c.round = 0
	a.InBackoff = false
	c.timers.Cancel(TimerReconnect, TimerTimeout)

	h := c.next()
	c.pending = h
	a.Elapsed = c.since(a)
	c.timers.After(TimerTimeout, a.AttemptTimeout, func() { c.expire(h) })

	c.log.Debug("reconnect attempt",
		zap.Stringer("cycle", a.CycleID),
		zap.Int("attempt", a.Number))

	c.release([]emission{{EventAttempt, []any{*a}}})
}

// expire times out the attempt identified by h.
func (c *Controller) expire(h handle) {
	c.mu.Lock()
	if c.pending != h || c.notifier == nil {
		c.mu.Unlock()
		return
	}

	a := c.attempt
	a.Elapsed = c.since(a)
	err := &AttemptTimeoutError{Attempt: a.Number, Timeout: a.AttemptTimeout}

	c.log.Debug("reconnect attempt timed out",
		zap.Stringer("cycle", a.CycleID),
		zap.Int("attempt", a.Number))

	out := []emission{{EventAttemptTimeout, []any{err, *a}}}
	out = append(out, c.settle(h, err)...)
	c.release(out)
}

// settle resolves the completion handle h at most once. Callers hold c.mu.
func (c *Controller) settle(h handle, err error) []emission {
	if h == 0 || c.pending != h {
		return nil
	}
	c.pending = 0

	if err != nil {
		c.timers.Cancel(TimerReconnect, TimerTimeout)
		return c.backoff(Overrides{})
	}

	a := c.attempt
	a.Elapsed = c.since(a)
	final := *a
	c.reset()

	c.log.Info("reconnected",
		zap.Stringer("cycle", final.CycleID),
		zap.Int("attempts", final.Number),
		zap.Duration("elapsed", final.Elapsed))

	return []emission{{EventSuccess, []any{final}}}
}

func (c *Controller) reset() {
	c.gen++
	c.attempt = nil
	c.exhausted = false
	c.pending, c.round = 0, 0
	c.timers.Cancel(TimerReconnect, TimerTimeout)
}

func (c *Controller) next() handle {
	c.seq++
	return c.seq
}

func (c *Controller) since(a *Attempt) time.Duration {
	return c.clock.Since(a.StartedAt)
}

// release unlocks c.mu and delivers out, so listeners may call back into the
// controller. Whatever is left of out is dropped once a listener resets or
// destroys the controller.
func (c *Controller) release(out []emission) {
	n, gen := c.notifier, c.gen
	c.mu.Unlock()
	if n == nil {
		return
	}
	for _, e := range out {
		if !c.current(gen) {
			return
		}
		n.Emit(e.event, e.payload...)
	}
}

// current reports whether no reset happened since gen was read.
func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}
