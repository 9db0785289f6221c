// Package fuse merges detector signals and manual overrides into a single
// context snapshot. Fusion is deliberately simple: manual overrides always
// win over detected signals, absent signals leave their field empty, and a
// fresh immutable snapshot is produced on every change.
package fuse

import (
	"sync"

	"github.com/echovoice/echovoice/pkg/types"
)

// Overrides are user-supplied values that take precedence over detector
// signals. Empty fields defer to detection.
type Overrides struct {
	PersonLabel   string
	LocationLabel string
	ToneModifier  string
}

// Fuse builds a context snapshot from the latest signal per kind and the
// manual overrides. It is a pure function of its inputs.
func Fuse(signals map[types.SignalKind]*types.Signal, overrides Overrides) types.Context {
	c := types.Context{
		ToneModifier: overrides.ToneModifier,
	}

	if s := signals[types.SignalEmotion]; s != nil {
		c.Emotion = s.Value
	}
	if s := signals[types.SignalTime]; s != nil {
		c.TimeOfDay = s.Value
	}

	if overrides.LocationLabel != "" {
		c.LocationLabel = overrides.LocationLabel
	} else if s := signals[types.SignalLocation]; s != nil {
		c.LocationLabel = s.Value
	}

	if overrides.PersonLabel != "" {
		c.PersonLabel = overrides.PersonLabel
	} else if s := signals[types.SignalPresence]; s != nil {
		c.PersonLabel = s.Value
	}

	return c
}

// Aggregator holds the latest signal per kind plus the manual overrides, and
// notifies a callback whenever the fused context actually changes. It is safe
// for concurrent use; detector callbacks and user actions land here from
// different goroutines.
type Aggregator struct {
	mu        sync.RWMutex
	signals   map[types.SignalKind]*types.Signal
	overrides Overrides
	current   types.Context
	onChange  func(types.Context)
}

// NewAggregator creates an aggregator with the given initial tone modifier.
func NewAggregator(tone string) *Aggregator {
	a := &Aggregator{
		signals:   make(map[types.SignalKind]*types.Signal),
		overrides: Overrides{ToneModifier: tone},
	}
	a.current = Fuse(a.signals, a.overrides)
	return a
}

// SetOnChange registers the callback invoked with each new snapshot. The
// callback runs on the goroutine that caused the change and must not call
// back into the aggregator.
func (a *Aggregator) SetOnChange(fn func(types.Context)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Update records a detector reading. A nil signal or an empty value clears
// the reading for that kind. Unknown or mismatched kinds are ignored.
func (a *Aggregator) Update(kind types.SignalKind, signal *types.Signal) {
	if signal != nil && signal.Kind != kind {
		return
	}
	a.mu.Lock()
	if signal == nil || signal.Value == "" {
		delete(a.signals, kind)
	} else {
		a.signals[kind] = signal
	}
	a.refreshLocked()
}

// SetPersonOverride pins the nearby-person field to a manual selection.
// An empty name returns the field to detection.
func (a *Aggregator) SetPersonOverride(name string) {
	a.mu.Lock()
	a.overrides.PersonLabel = name
	a.refreshLocked()
}

// SetLocationOverride pins the location field to a manual selection.
// An empty label returns the field to detection.
func (a *Aggregator) SetLocationOverride(label string) {
	a.mu.Lock()
	a.overrides.LocationLabel = label
	a.refreshLocked()
}

// SetTone sets the communication style carried on every snapshot. Invalid
// tones are ignored.
func (a *Aggregator) SetTone(tone string) {
	if !types.IsValidTone(tone) {
		return
	}
	a.mu.Lock()
	a.overrides.ToneModifier = tone
	a.refreshLocked()
}

// Snapshot returns the current fused context.
func (a *Aggregator) Snapshot() types.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Overrides returns the current manual overrides.
func (a *Aggregator) Overrides() Overrides {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.overrides
}

// refreshLocked recomputes the snapshot and fires the change callback when it
// differs. The caller must hold a.mu; the lock is released before the
// callback runs.
func (a *Aggregator) refreshLocked() {
	next := Fuse(a.signals, a.overrides)
	if next.Equal(a.current) {
		a.mu.Unlock()
		return
	}
	a.current = next
	fn := a.onChange
	a.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}
