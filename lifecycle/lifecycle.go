// Package lifecycle decides when an authenticated session should be locked
// or logged out, based on user inactivity and app backgrounding.
//
// A Controller tracks the wall-clock time of the most recent user
// interaction and the application's visibility state. While the app is
// visible and the controller is started, a single-shot idle timer counts
// down the configured inactivity threshold; any registered activity restarts
// it. When the app leaves the foreground the idle timer is cancelled and the
// time of departure is recorded; on return, the elapsed backgrounded
// duration is compared against the background threshold. Either condition
// invokes the configured trigger callback exactly once per cycle.
//
// Callers typically run two controllers side by side for one session: a
// short-threshold one whose trigger locks the session (requiring
// re-authentication) and a long-threshold one whose trigger signs the
// session out entirely.
package lifecycle

import (
	"context"
	"errors"
	"time"
)

// Visibility is the application's foreground/background state as reported
// by the host environment. Background and Inactive are treated identically
// for arming purposes: in both, the app cannot receive input, so idleness
// is not judged.
type Visibility int

const (
	// VisibilityActive means the app is foregrounded and receiving input.
	VisibilityActive Visibility = iota
	// VisibilityBackground means the app is fully backgrounded.
	VisibilityBackground
	// VisibilityInactive means the app is visible but not interactive
	// (e.g. system dialog overlay, app switcher).
	VisibilityInactive
)

func (v Visibility) String() string {
	switch v {
	case VisibilityActive:
		return "active"
	case VisibilityBackground:
		return "background"
	case VisibilityInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Reason identifies which condition fired a trigger.
type Reason string

const (
	// ReasonInactivity: no activity was registered for the inactivity
	// threshold while the app stayed foregrounded.
	ReasonInactivity Reason = "inactivity"
	// ReasonBackground: the app returned to the foreground after being
	// backgrounded longer than the background threshold.
	ReasonBackground Reason = "background"
)

// TriggerFunc performs the lock or logout action. It may be slow (e.g. a
// remote sign-out call); the controller invokes it off the caller's
// goroutine and never retries it. It must tolerate being called after the
// session has already ended by other means.
type TriggerFunc func(ctx context.Context, reason Reason) error

const (
	// DefaultInactivityThreshold suits the full sign-out variant.
	DefaultInactivityThreshold = 20 * time.Minute
	// DefaultBackgroundThreshold suits the quick app-lock variant.
	DefaultBackgroundThreshold = 30 * time.Second

	// defaultCooldown is how long after a trigger settles before another
	// may dispatch. Absorbs near-simultaneous duplicate fires without
	// permanently blocking future legitimate triggers.
	defaultCooldown = 500 * time.Millisecond
)

// ErrNoTrigger is returned by New when the config has no trigger callback.
var ErrNoTrigger = errors.New("lifecycle: config requires an OnTrigger callback")

// Config parameterizes a Controller. It is immutable once the controller
// is constructed.
type Config struct {
	// InactivityThreshold is the allowed foreground idle duration before
	// the trigger fires with ReasonInactivity.
	// Zero means DefaultInactivityThreshold.
	InactivityThreshold time.Duration

	// BackgroundThreshold is the allowed backgrounded duration before the
	// trigger fires with ReasonBackground on return to the foreground.
	// Zero means DefaultBackgroundThreshold.
	BackgroundThreshold time.Duration

	// OnTrigger performs the lock or logout action. Required.
	OnTrigger TriggerFunc
}
