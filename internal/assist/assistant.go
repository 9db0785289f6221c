// Package assist wires the detection, fusion, suggestion, trigger, and
// escalation subsystems into one assistant with a small imperative surface
// for the transport layer: speak a phrase, fetch suggestions, adjust the
// context, and drive the emergency button.
package assist

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/echovoice/echovoice/internal/config"
	"github.com/echovoice/echovoice/internal/detect"
	"github.com/echovoice/echovoice/internal/escalate"
	"github.com/echovoice/echovoice/internal/fuse"
	"github.com/echovoice/echovoice/internal/history"
	"github.com/echovoice/echovoice/internal/llm"
	"github.com/echovoice/echovoice/internal/messaging"
	"github.com/echovoice/echovoice/internal/notify"
	"github.com/echovoice/echovoice/internal/speech"
	"github.com/echovoice/echovoice/internal/suggest"
	"github.com/echovoice/echovoice/internal/trigger"
	"github.com/echovoice/echovoice/pkg/types"
)

// resuggestDebounce is how long the assistant waits after a context change
// before recomputing suggestions, so a burst of detector updates produces
// one request instead of several.
const resuggestDebounce = 500 * time.Millisecond

// Options carries the assistant's dependencies. Generator, Speaker, Sink,
// Messenger, and the detectors may each be nil; the assistant degrades to
// whatever is wired.
type Options struct {
	Config    *config.Config
	Generator llm.TextGenerator
	Speaker   speech.Speaker
	Sink      history.Sink
	Messenger messaging.Messenger
	Contacts  []types.Contact

	Emotion      *detect.EmotionDetector
	Presence     *detect.PresenceDetector
	LocationTime *detect.LocationTimeDetector
}

// Assistant is the core orchestrator. All exported methods are safe for
// concurrent use.
type Assistant struct {
	cfg        *config.Config
	aggregator *fuse.Aggregator
	engine     *suggest.Engine
	trig       *trigger.Trigger
	dispatcher *escalate.Dispatcher
	speaker    speech.Speaker
	sink       history.Sink
	events     *notify.EventWriter

	emotion      *detect.EmotionDetector
	presence     *detect.PresenceDetector
	locationTime *detect.LocationTimeDetector

	mu            sync.RWMutex
	started       bool
	baseCtx       context.Context
	baseCancel    context.CancelFunc
	contacts      []types.Contact
	suggestions   []types.Suggestion
	suggestSource string
	lastDispatch  *escalate.DispatchResult
	resuggest     *time.Timer

	onSuggestions func([]types.Suggestion, string)
	onEmergency   func(stage string, event types.EmergencyEvent)
	onDispatch    func(result escalate.DispatchResult)
}

// New creates an assistant from its dependencies. The trigger and dispatcher
// are built internally from the config.
func New(opts Options) (*Assistant, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Speaker == nil {
		return nil, fmt.Errorf("speaker is required")
	}

	a := &Assistant{
		cfg:          opts.Config,
		aggregator:   fuse.NewAggregator(opts.Config.User.ToneModifier),
		engine:       suggest.NewEngine(opts.Generator),
		speaker:      opts.Speaker,
		sink:         opts.Sink,
		events:       notify.NewEventWriter(opts.Config.Storage.DataPath),
		emotion:      opts.Emotion,
		presence:     opts.Presence,
		locationTime: opts.LocationTime,
		contacts:     opts.Contacts,
	}

	a.dispatcher = escalate.NewDispatcher(
		opts.Speaker, opts.Sink, opts.Messenger,
		opts.Config.Messaging.TwilioFromNumber,
		opts.Config.User.UserName,
	)

	a.trig = trigger.New(trigger.Config{
		LongPressDuration: opts.Config.Trigger.LongPressDuration,
		RapidTapCount:     opts.Config.Trigger.RapidTapCount,
		TapResetWindow:    opts.Config.Trigger.TapResetWindow,
		ConfirmCountdown:  opts.Config.Trigger.ConfirmCountdown,
	}, a.Context)

	a.trig.SetOnFired(a.emergencyArmed)
	a.trig.SetOnConfirmed(a.emergencyConfirmed)
	a.trig.SetOnCancelled(a.emergencyCancelled)
	a.aggregator.SetOnChange(a.contextChanged)

	return a, nil
}

// SetOnSuggestions registers the callback invoked whenever the suggestion
// list is recomputed. Must be called before Start.
func (a *Assistant) SetOnSuggestions(fn func([]types.Suggestion, string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSuggestions = fn
}

// SetOnEmergency registers the callback invoked on emergency transitions
// (stages "armed", "cancelled", "dispatched"). Must be called before Start.
func (a *Assistant) SetOnEmergency(fn func(stage string, event types.EmergencyEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEmergency = fn
}

// SetOnDispatch registers the callback invoked with each escalation result.
// Must be called before Start.
func (a *Assistant) SetOnDispatch(fn func(result escalate.DispatchResult)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDispatch = fn
}

// Start launches the configured detectors and computes the initial
// suggestion set.
func (a *Assistant) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("assistant already started")
	}
	a.started = true
	a.baseCtx, a.baseCancel = context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Unlock()

	if a.cfg.Detect.ContextDetection {
		if a.emotion != nil {
			a.emotion.SetOnReading(func(s *types.Signal) {
				a.aggregator.Update(types.SignalEmotion, s)
			})
			if err := a.emotion.Start(ctx); err != nil {
				return fmt.Errorf("failed to start emotion detector: %w", err)
			}
		}
		if a.presence != nil {
			a.presence.SetOnReading(func(s *types.Signal) {
				a.aggregator.Update(types.SignalPresence, s)
			})
			if err := a.presence.Start(ctx); err != nil {
				return fmt.Errorf("failed to start presence detector: %w", err)
			}
		}
	}
	if a.locationTime != nil {
		a.locationTime.SetOnReading(func(s *types.Signal) {
			a.aggregator.Update(s.Kind, s)
		})
		if err := a.locationTime.Start(ctx); err != nil {
			return fmt.Errorf("failed to start location-time detector: %w", err)
		}
	}

	a.refreshSuggestions()
	log.Printf("assistant started (detection=%v, contacts=%d)", a.cfg.Detect.ContextDetection, len(a.contacts))
	return nil
}

// Shutdown stops the detectors and pending timers. The history sink is owned
// by the caller and stays open.
func (a *Assistant) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = false
	if a.resuggest != nil {
		a.resuggest.Stop()
		a.resuggest = nil
	}
	cancel := a.baseCancel
	a.mu.Unlock()

	if a.emotion != nil {
		a.emotion.Stop()
	}
	if a.presence != nil {
		a.presence.Stop()
	}
	if a.locationTime != nil {
		a.locationTime.Stop()
	}
	a.trig.Cancel()
	if cancel != nil {
		cancel()
	}

	log.Println("assistant stopped")
	return nil
}

// Context returns the current fused context snapshot.
func (a *Assistant) Context() types.Context {
	return a.aggregator.Snapshot()
}

// Suggestions returns the most recently computed suggestion list and its
// source.
func (a *Assistant) Suggestions() ([]types.Suggestion, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.suggestions, a.suggestSource
}

// SuggestNow recomputes suggestions for the current context immediately,
// bypassing the debounce.
func (a *Assistant) SuggestNow(ctx context.Context) ([]types.Suggestion, string) {
	suggestions, source := a.engine.Suggest(ctx, a.aggregator.Snapshot())
	a.storeSuggestions(suggestions, source)
	return suggestions, source
}

// Speak speaks a phrase aloud and records it in history. category and source
// describe how the phrase was chosen; source defaults to manual.
func (a *Assistant) Speak(ctx context.Context, phrase, category, source string) error {
	if phrase == "" {
		return fmt.Errorf("phrase is required")
	}
	if source == "" {
		source = history.SourceManual
	}

	if err := a.speaker.Speak(ctx, phrase, speech.DefaultParams()); err != nil {
		return fmt.Errorf("failed to speak: %w", err)
	}

	if a.sink != nil && a.cfg.User.SaveHistory {
		record := history.NewRecord(phrase, category, source)
		snapshot := a.aggregator.Snapshot()
		record.Emotion = snapshot.Emotion
		record.LocationLabel = snapshot.LocationLabel
		record.PersonLabel = snapshot.PersonLabel
		if err := a.sink.Append(ctx, record); err != nil {
			log.Printf("WARNING: failed to record spoken phrase: %v", err)
		} else if err := a.events.Notify(notify.EventPhraseSpoken, record.ID); err != nil {
			log.Printf("WARNING: failed to write phrase event: %v", err)
		}
	}

	return nil
}

// History returns up to limit spoken phrases, newest first.
func (a *Assistant) History(ctx context.Context, limit int) ([]history.Record, error) {
	if a.sink == nil {
		return nil, nil
	}
	return a.sink.Recent(ctx, limit)
}

// SelectPerson pins the nearby-person field; an empty name returns it to
// detection.
func (a *Assistant) SelectPerson(name string) {
	a.aggregator.SetPersonOverride(name)
}

// SelectLocation pins the location field; an empty label returns it to
// detection.
func (a *Assistant) SelectLocation(label string) {
	a.aggregator.SetLocationOverride(label)
}

// SetTone sets the communication style. Invalid tones are rejected.
func (a *Assistant) SetTone(tone string) error {
	if !types.IsValidTone(tone) {
		return fmt.Errorf("invalid tone: %q", tone)
	}
	a.aggregator.SetTone(tone)
	return nil
}

// EmergencyPress reports the emergency button going down.
func (a *Assistant) EmergencyPress() { a.trig.Press() }

// EmergencyRelease reports the emergency button coming up.
func (a *Assistant) EmergencyRelease() { a.trig.Release() }

// EmergencyCancel aborts an armed emergency during its countdown.
func (a *Assistant) EmergencyCancel() bool { return a.trig.Cancel() }

// EmergencyConfirm confirms an armed emergency without waiting out the
// countdown.
func (a *Assistant) EmergencyConfirm() bool { return a.trig.Confirm() }

// EmergencyState returns the trigger phase and the armed event, if any.
func (a *Assistant) EmergencyState() (trigger.State, *types.EmergencyEvent) {
	return a.trig.State(), a.trig.ActiveEvent()
}

// LastDispatch returns the most recent escalation result, or nil.
func (a *Assistant) LastDispatch() *escalate.DispatchResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastDispatch
}

// DetectorStatuses reports each configured detector's state.
func (a *Assistant) DetectorStatuses() map[string]detect.Status {
	statuses := make(map[string]detect.Status)
	if a.emotion != nil {
		statuses[a.emotion.Name()] = a.emotion.Status()
	}
	if a.presence != nil {
		statuses[a.presence.Name()] = a.presence.Status()
	}
	if a.locationTime != nil {
		statuses[a.locationTime.Name()] = a.locationTime.Status()
	}
	return statuses
}

// BreakerState exposes the suggestion backend circuit state for health
// reporting.
func (a *Assistant) BreakerState() string {
	return a.engine.BreakerState()
}

// contextChanged schedules a debounced suggestion refresh. It runs on
// detector goroutines and user-action goroutines.
func (a *Assistant) contextChanged(types.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return
	}
	if a.resuggest != nil {
		a.resuggest.Stop()
	}
	a.resuggest = time.AfterFunc(resuggestDebounce, a.refreshSuggestions)
}

// refreshSuggestions recomputes the suggestion list for the current context.
func (a *Assistant) refreshSuggestions() {
	a.mu.RLock()
	baseCtx := a.baseCtx
	a.mu.RUnlock()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := context.WithTimeout(baseCtx, a.cfg.LLM.Timeout+time.Second)
	defer cancel()

	suggestions, source := a.engine.Suggest(ctx, a.aggregator.Snapshot())
	a.storeSuggestions(suggestions, source)
}

func (a *Assistant) storeSuggestions(suggestions []types.Suggestion, source string) {
	a.mu.Lock()
	a.suggestions = suggestions
	a.suggestSource = source
	fn := a.onSuggestions
	a.mu.Unlock()

	if err := a.events.Notify(notify.EventSuggestionsUpdated, source); err != nil {
		log.Printf("WARNING: failed to write suggestions event: %v", err)
	}
	if fn != nil {
		fn(suggestions, source)
	}
}

// emergencyArmed runs when a gesture arms an emergency and the countdown
// starts.
func (a *Assistant) emergencyArmed(event types.EmergencyEvent) {
	log.Printf("emergency armed (trigger=%s, countdown=%ds)", event.TriggerKind, event.CountdownSeconds)
	if err := a.events.Notify(notify.EventEmergencyArmed, event.ID); err != nil {
		log.Printf("WARNING: failed to write emergency event: %v", err)
	}
	a.notifyEmergency("armed", event)
}

// emergencyConfirmed runs exactly once per armed emergency, on manual
// confirmation or countdown expiry, and performs the escalation.
func (a *Assistant) emergencyConfirmed(event types.EmergencyEvent) {
	a.mu.RLock()
	baseCtx := a.baseCtx
	contacts := a.contacts
	a.mu.RUnlock()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := context.WithTimeout(baseCtx, 30*time.Second)
	defer cancel()

	result := a.dispatcher.Dispatch(ctx, event, contacts)

	a.mu.Lock()
	a.lastDispatch = &result
	dispatchFn := a.onDispatch
	a.mu.Unlock()

	if err := a.events.Notify(notify.EventEmergencyDispatched, event.ID); err != nil {
		log.Printf("WARNING: failed to write emergency event: %v", err)
	}
	a.notifyEmergency("dispatched", event)
	if dispatchFn != nil {
		dispatchFn(result)
	}
}

// emergencyCancelled runs when the countdown is aborted.
func (a *Assistant) emergencyCancelled(event types.EmergencyEvent) {
	log.Printf("emergency cancelled (trigger=%s)", event.TriggerKind)
	if err := a.events.Notify(notify.EventEmergencyCancelled, event.ID); err != nil {
		log.Printf("WARNING: failed to write emergency event: %v", err)
	}
	a.notifyEmergency("cancelled", event)
}

func (a *Assistant) notifyEmergency(stage string, event types.EmergencyEvent) {
	a.mu.RLock()
	fn := a.onEmergency
	a.mu.RUnlock()
	if fn != nil {
		fn(stage, event)
	}
}
