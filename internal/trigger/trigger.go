// Package trigger implements the emergency gesture state machine. Two
// gestures arm an emergency: a continuous long press, or a run of rapid taps
// inside a rolling window. Arming starts a countdown that auto-confirms
// unless the user cancels, so help is summoned even if the user can do
// nothing more than the initial gesture.
package trigger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echovoice/echovoice/pkg/types"
)

// State is the trigger state machine's current phase.
type State string

const (
	// StateIdle means no gesture is in progress.
	StateIdle State = "idle"

	// StatePressed means the button is held and the long-press timer is
	// running.
	StatePressed State = "pressed"

	// StateCountdown means an emergency is armed and counting down to
	// auto-confirmation.
	StateCountdown State = "countdown"
)

// Config holds the gesture timing parameters.
type Config struct {
	LongPressDuration time.Duration
	RapidTapCount     int
	TapResetWindow    time.Duration
	ConfirmCountdown  time.Duration
}

// Trigger is the emergency gesture state machine. Press and Release report
// raw button transitions; the machine derives taps and long presses from
// them. It is safe for concurrent use.
type Trigger struct {
	cfg       Config
	contextFn func() types.Context
	now       func() time.Time

	mu             sync.Mutex
	state          State
	tapCount       int
	lastTap        time.Time
	pressTimer     *time.Timer
	countdownTimer *time.Timer
	event          *types.EmergencyEvent

	onFired     func(types.EmergencyEvent)
	onConfirmed func(types.EmergencyEvent)
	onCancelled func(types.EmergencyEvent)
}

// New creates a trigger. contextFn supplies the context snapshot captured at
// the moment an emergency is armed; it may be nil.
func New(cfg Config, contextFn func() types.Context) *Trigger {
	if contextFn == nil {
		contextFn = func() types.Context { return types.Context{} }
	}
	return &Trigger{
		cfg:       cfg,
		contextFn: contextFn,
		now:       time.Now,
		state:     StateIdle,
	}
}

// SetOnFired registers the callback invoked when an emergency is armed and
// the countdown starts. Must be called before the first gesture.
func (t *Trigger) SetOnFired(fn func(types.EmergencyEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFired = fn
}

// SetOnConfirmed registers the callback invoked exactly once when the armed
// emergency is confirmed, either manually or by countdown expiry.
func (t *Trigger) SetOnConfirmed(fn func(types.EmergencyEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConfirmed = fn
}

// SetOnCancelled registers the callback invoked when an armed emergency is
// cancelled before confirmation.
func (t *Trigger) SetOnCancelled(fn func(types.EmergencyEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCancelled = fn
}

// State returns the current phase.
func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ActiveEvent returns the armed event during the countdown, or nil.
func (t *Trigger) ActiveEvent() *types.EmergencyEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.event == nil {
		return nil
	}
	copied := *t.event
	return &copied
}

// Press reports that the emergency button went down. During a countdown the
// press is ignored; the countdown must be cancelled or confirmed first.
func (t *Trigger) Press() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return
	}

	t.state = StatePressed
	t.pressTimer = time.AfterFunc(t.cfg.LongPressDuration, t.longPressElapsed)
}

// Release reports that the emergency button came up. A release before the
// long-press duration counts as one tap toward the rapid-tap gesture.
func (t *Trigger) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePressed {
		return
	}

	t.pressTimer.Stop()
	t.pressTimer = nil
	t.state = StateIdle

	now := t.now()
	if !t.lastTap.IsZero() && now.Sub(t.lastTap) > t.cfg.TapResetWindow {
		t.tapCount = 0
	}
	t.tapCount++
	t.lastTap = now

	if t.tapCount >= t.cfg.RapidTapCount {
		t.fireLocked(types.TriggerRapidTap)
	}
}

// Cancel aborts the armed emergency during the countdown. It reports whether
// there was a countdown to cancel.
func (t *Trigger) Cancel() bool {
	t.mu.Lock()

	if t.state != StateCountdown {
		t.mu.Unlock()
		return false
	}

	t.countdownTimer.Stop()
	t.countdownTimer = nil
	event := *t.event
	t.event = nil
	t.state = StateIdle
	fn := t.onCancelled
	t.mu.Unlock()

	if fn != nil {
		fn(event)
	}
	return true
}

// Confirm confirms the armed emergency immediately instead of waiting out the
// countdown. It reports whether there was a countdown to confirm.
func (t *Trigger) Confirm() bool {
	t.mu.Lock()
	return t.confirmLocked()
}

// longPressElapsed runs on the press timer goroutine when the hold reached
// the long-press duration.
func (t *Trigger) longPressElapsed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePressed {
		return
	}
	t.pressTimer = nil
	t.tapCount = 0
	t.fireLocked(types.TriggerLongPress)
}

// fireLocked arms the emergency and starts the countdown. Caller holds t.mu.
func (t *Trigger) fireLocked(kind types.TriggerKind) {
	t.tapCount = 0
	t.lastTap = time.Time{}
	t.state = StateCountdown
	t.event = &types.EmergencyEvent{
		ID:               uuid.New().String(),
		TriggerKind:      kind,
		ArmedAt:          t.now(),
		CountdownSeconds: int(t.cfg.ConfirmCountdown / time.Second),
		Context:          t.contextFn(),
	}
	t.countdownTimer = time.AfterFunc(t.cfg.ConfirmCountdown, t.countdownElapsed)

	if t.onFired != nil {
		event := *t.event
		fn := t.onFired
		t.mu.Unlock()
		fn(event)
		t.mu.Lock()
	}
}

// countdownElapsed runs on the countdown timer goroutine and auto-confirms.
func (t *Trigger) countdownElapsed() {
	t.mu.Lock()
	t.confirmLocked()
}

// confirmLocked finishes the countdown exactly once. Caller holds t.mu; the
// lock is released before returning.
func (t *Trigger) confirmLocked() bool {
	if t.state != StateCountdown {
		t.mu.Unlock()
		return false
	}

	t.countdownTimer.Stop()
	t.countdownTimer = nil
	event := *t.event
	t.event = nil
	t.state = StateIdle
	fn := t.onConfirmed
	t.mu.Unlock()

	if fn != nil {
		fn(event)
	}
	return true
}
