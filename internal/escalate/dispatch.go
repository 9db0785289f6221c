package escalate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/echovoice/echovoice/internal/history"
	"github.com/echovoice/echovoice/internal/messaging"
	"github.com/echovoice/echovoice/internal/speech"
	"github.com/echovoice/echovoice/pkg/types"
)

// Dispatch outcomes.
const (
	OutcomeSuccess = "success" // every channel delivered
	OutcomePartial = "partial" // something delivered, something failed
	OutcomeFailed  = "failed"  // neither the spoken alert nor the history record landed
)

// ContactResult is the delivery result for one notified number.
type ContactResult struct {
	Contact types.Contact `json:"contact"`
	Err     error         `json:"-"`
	Ok      bool          `json:"ok"`
}

// DispatchResult reports what each escalation channel achieved. Escalation
// never returns an error as a whole: a partially delivered emergency is
// still a delivered emergency, and the caller needs the breakdown, not an
// all-or-nothing verdict.
type DispatchResult struct {
	Outcome        string          `json:"outcome"`
	Message        string          `json:"message"`
	SuccessCount   int             `json:"success_count"`
	TotalCount     int             `json:"total_count"`
	SpeechErr      error           `json:"-"`
	HistoryErr     error           `json:"-"`
	ContactResults []ContactResult `json:"contact_results"`
}

// Dispatcher fans a confirmed emergency out to the speech, history, and SMS
// channels. Any of sink and messenger may be nil, which skips that channel.
type Dispatcher struct {
	speaker        speech.Speaker
	sink           history.Sink
	messenger      messaging.Messenger
	fallbackNumber string
	userName       string
}

// NewDispatcher creates a dispatcher. fallbackNumber is notified when the
// contact roster is empty, so an unconfigured roster still alerts someone.
func NewDispatcher(speaker speech.Speaker, sink history.Sink, messenger messaging.Messenger, fallbackNumber, userName string) *Dispatcher {
	return &Dispatcher{
		speaker:        speaker,
		sink:           sink,
		messenger:      messenger,
		fallbackNumber: fallbackNumber,
		userName:       userName,
	}
}

// Dispatch runs the three escalation stages in order: speak the alert
// urgently, record it in history, then notify each contact. Stages do not
// short-circuit each other.
func (d *Dispatcher) Dispatch(ctx context.Context, event types.EmergencyEvent, contacts []types.Contact) DispatchResult {
	message := event.Message
	if message == "" {
		message = d.BuildAlertMessage(event)
	}

	result := DispatchResult{Message: message}

	if d.speaker != nil {
		if err := d.speaker.Speak(ctx, message, speech.UrgentParams()); err != nil {
			log.Printf("ERROR: emergency speech failed: %v", err)
			result.SpeechErr = fmt.Errorf("speech: %w", err)
		}
	}

	if d.sink != nil {
		record := history.NewRecord(message, types.CategoryEmotionalExpression, history.SourceEmergency)
		record.Emotion = event.Context.Emotion
		record.LocationLabel = event.Context.LocationLabel
		record.PersonLabel = event.Context.PersonLabel
		if err := d.sink.Append(ctx, record); err != nil {
			log.Printf("ERROR: emergency history record failed: %v", err)
			result.HistoryErr = fmt.Errorf("history: %w", err)
		}
	}

	result.ContactResults = d.notify(ctx, message, contacts)
	result.TotalCount = len(result.ContactResults)
	for _, cr := range result.ContactResults {
		if cr.Ok {
			result.SuccessCount++
		}
	}

	result.Outcome = d.outcome(result)
	log.Printf("emergency dispatch %s: %d/%d contacts notified (trigger=%s)",
		result.Outcome, result.SuccessCount, result.TotalCount, event.TriggerKind)
	return result
}

// BuildAlertMessage composes the alert text from the event's context
// snapshot.
func (d *Dispatcher) BuildAlertMessage(event types.EmergencyEvent) string {
	name := d.userName
	if name == "" {
		name = "The EchoVoice user"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "EMERGENCY: %s needs immediate help.", name)
	if event.Context.LocationLabel != "" {
		fmt.Fprintf(&sb, " Last known location: %s.", event.Context.LocationLabel)
	}
	if event.Context.PersonLabel != "" {
		fmt.Fprintf(&sb, " %s is nearby.", event.Context.PersonLabel)
	}
	return sb.String()
}

// notify sends the alert to every contact, or to the fallback number when
// the roster is empty. A nil messenger notifies nobody.
func (d *Dispatcher) notify(ctx context.Context, message string, contacts []types.Contact) []ContactResult {
	if d.messenger == nil {
		return nil
	}

	targets := contacts
	if len(targets) == 0 && d.fallbackNumber != "" {
		targets = []types.Contact{{Name: "fallback", Phone: d.fallbackNumber}}
	}

	results := make([]ContactResult, 0, len(targets))
	for _, contact := range targets {
		err := d.messenger.Send(ctx, contact.Phone, message)
		if err != nil {
			log.Printf("ERROR: failed to notify %s (%s): %v", contact.Name, contact.Phone, err)
		}
		results = append(results, ContactResult{
			Contact: contact,
			Err:     err,
			Ok:      err == nil,
		})
	}
	return results
}

// outcome classifies the dispatch: failed when neither the spoken alert nor
// the history record landed, success when nothing failed at all, partial
// otherwise.
func (d *Dispatcher) outcome(r DispatchResult) string {
	if r.SpeechErr != nil && r.HistoryErr != nil {
		return OutcomeFailed
	}
	if r.SpeechErr == nil && r.HistoryErr == nil && r.SuccessCount == r.TotalCount {
		return OutcomeSuccess
	}
	return OutcomePartial
}
