package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Controller owns all mutable state for one session's lifecycle tracking:
// last-activity timestamp, visibility, background-entry timestamp, the
// pending idle timer, and the dispatch guard. It is safe for concurrent use;
// internally every transition happens under one mutex, which preserves the
// per-controller ordering the semantics depend on (leaving the foreground
// cancels the idle timer before any later fire can be observed).
type Controller struct {
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
	cooldown time.Duration

	mu             sync.Mutex
	started        bool
	visibility     Visibility
	lastActivityAt time.Time
	backgroundedAt time.Time // zero iff visibility == VisibilityActive
	timer          *time.Timer
	timerGen       uint64 // invalidates stale idle-timer fires
	dispatching    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithCooldown overrides the post-trigger cooldown during which duplicate
// fires are dropped.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) {
		c.cooldown = d
	}
}

// New creates a stopped Controller. Call Start to begin tracking.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if cfg.OnTrigger == nil {
		return nil, ErrNoTrigger
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = DefaultInactivityThreshold
	}
	if cfg.BackgroundThreshold <= 0 {
		cfg.BackgroundThreshold = DefaultBackgroundThreshold
	}
	c := &Controller{
		cfg:        cfg,
		now:        time.Now,
		cooldown:   defaultCooldown,
		visibility: VisibilityActive,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "lifecycle")
	return c, nil
}

// Start enables the controller and arms the idle timer. The caller should
// only start a controller while an authenticated session exists; Stop must
// be called when the session ends. Starting an already-started controller
// restarts the idle countdown.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.visibility = VisibilityActive
	c.backgroundedAt = time.Time{}
	c.lastActivityAt = c.now()
	c.armLocked()
}

// Stop disables the controller, cancelling any pending idle timer and
// clearing background tracking. A trigger already in flight is not
// interrupted, but no further triggers dispatch until Start is called again.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.backgroundedAt = time.Time{}
	c.cancelTimerLocked()
}

// Started reports whether the controller is currently tracking.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Visibility returns the last visibility reported via SetVisibility.
func (c *Controller) Visibility() Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility
}

// LastActivityAt returns the time of the most recent registered activity.
func (c *Controller) LastActivityAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivityAt
}

// RegisterActivity records a user interaction and, while the app is
// foregrounded, restarts the idle countdown. Repeated calls are idempotent:
// at most one idle timer is ever pending. No-op on a stopped controller.
func (c *Controller) RegisterActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.lastActivityAt = c.now()
	if c.visibility == VisibilityActive {
		c.armLocked()
	}
}

// SetVisibility reports a host visibility change.
//
// Leaving the foreground records the departure time and cancels the idle
// timer. Returning to the foreground compares the elapsed backgrounded
// duration against the background threshold: past the threshold the trigger
// dispatches immediately (and the idle timer is not re-armed this cycle);
// otherwise the return is treated as fresh activity and the idle countdown
// restarts. Transitions between the two non-active states keep the original
// departure time.
func (c *Controller) SetVisibility(next Visibility) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || next == c.visibility {
		return
	}

	prev := c.visibility
	c.visibility = next

	if next == VisibilityActive {
		elapsed := time.Duration(0)
		if !c.backgroundedAt.IsZero() {
			elapsed = c.now().Sub(c.backgroundedAt)
		}
		c.backgroundedAt = time.Time{}
		if elapsed >= c.cfg.BackgroundThreshold {
			c.log.Debug("background threshold exceeded on resume",
				"elapsed", elapsed, "threshold", c.cfg.BackgroundThreshold)
			c.dispatchLocked(ReasonBackground)
			return
		}
		c.lastActivityAt = c.now()
		c.armLocked()
		return
	}

	if prev == VisibilityActive {
		c.backgroundedAt = c.now()
		c.cancelTimerLocked()
	}
	// Background <-> Inactive: keep the original backgroundedAt, timer
	// stays cancelled.
}

// armLocked (re)starts the single-shot idle timer. Caller holds c.mu.
func (c *Controller) armLocked() {
	c.cancelTimerLocked()
	if !c.started || c.visibility != VisibilityActive {
		return
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.cfg.InactivityThreshold, func() {
		c.onIdleFire(gen)
	})
}

// cancelTimerLocked stops any pending idle timer and invalidates fires that
// already left the timer goroutine. Caller holds c.mu.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Controller) onIdleFire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A fire that raced a cancellation carries a stale generation.
	if gen != c.timerGen {
		return
	}
	c.timer = nil
	if !c.started || c.visibility != VisibilityActive {
		return
	}
	c.dispatchLocked(ReasonInactivity)
}

// dispatchLocked performs the trigger action at most once per cycle. The
// guard is set synchronously, before the (possibly asynchronous) trigger
// body runs, so a second fire in the same window cannot slip through; it is
// dropped, not queued. The guard clears a short cooldown after the trigger
// settles. Caller holds c.mu.
func (c *Controller) dispatchLocked(reason Reason) {
	if !c.started {
		return
	}
	if c.dispatching {
		c.log.Debug("trigger suppressed by in-flight dispatch", "reason", reason)
		return
	}
	c.dispatching = true

	go func() {
		if err := c.cfg.OnTrigger(context.Background(), reason); err != nil {
			// Best-effort notification: the caller is expected to have
			// already applied the local lock/logout effect.
			c.log.Warn("session trigger failed", "reason", reason, "error", err)
		}
		time.Sleep(c.cooldown)
		c.mu.Lock()
		c.dispatching = false
		c.mu.Unlock()
	}()
}
