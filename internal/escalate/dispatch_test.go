package escalate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/echovoice/echovoice/internal/history"
	"github.com/echovoice/echovoice/internal/speech"
	"github.com/echovoice/echovoice/pkg/types"
)

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	params []speech.Params
	err    error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string, params speech.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	f.params = append(f.params, params)
	return nil
}

type failingSink struct{}

func (failingSink) Append(ctx context.Context, r history.Record) error {
	return errors.New("disk full")
}
func (failingSink) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	return nil, errors.New("disk full")
}
func (failingSink) Close() error { return nil }

// fakeMessenger fails for any number present in failNumbers.
type fakeMessenger struct {
	mu          sync.Mutex
	sent        []string
	failNumbers map[string]bool
}

func (f *fakeMessenger) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNumbers[to] {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, to)
	return nil
}

func testEvent() types.EmergencyEvent {
	return types.EmergencyEvent{
		ID:          "evt-1",
		TriggerKind: types.TriggerRapidTap,
		Context: types.Context{
			Emotion:       types.EmotionFearful,
			LocationLabel: "kitchen",
			PersonLabel:   "Maria",
		},
	}
}

func TestDispatchAllChannelsSucceed(t *testing.T) {
	speaker := &fakeSpeaker{}
	sink := history.NewMemorySink()
	messenger := &fakeMessenger{}
	d := NewDispatcher(speaker, sink, messenger, "+15550100", "Alex")

	contacts := []types.Contact{
		{Name: "Maria", Phone: "+15550111"},
		{Name: "Sam", Phone: "+15550112"},
	}
	result := d.Dispatch(context.Background(), testEvent(), contacts)

	if result.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q, want success", result.Outcome)
	}
	if result.SuccessCount != 2 || result.TotalCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", result.SuccessCount, result.TotalCount)
	}

	if len(speaker.spoken) != 1 {
		t.Fatalf("expected 1 spoken alert, got %d", len(speaker.spoken))
	}
	if !strings.Contains(speaker.spoken[0], "Alex") || !strings.Contains(speaker.spoken[0], "kitchen") {
		t.Errorf("alert missing name or location: %q", speaker.spoken[0])
	}
	urgent := speech.UrgentParams()
	if speaker.params[0] != urgent {
		t.Errorf("alert params = %+v, want urgent %+v", speaker.params[0], urgent)
	}

	records, _ := sink.Recent(context.Background(), 10)
	if len(records) != 1 || records[0].Source != history.SourceEmergency {
		t.Errorf("unexpected history records: %+v", records)
	}
}

func TestDispatchPartialWhenOneContactFails(t *testing.T) {
	messenger := &fakeMessenger{failNumbers: map[string]bool{"+15550112": true}}
	d := NewDispatcher(&fakeSpeaker{}, history.NewMemorySink(), messenger, "", "Alex")

	contacts := []types.Contact{
		{Name: "Maria", Phone: "+15550111"},
		{Name: "Sam", Phone: "+15550112"},
		{Name: "Lee", Phone: "+15550113"},
	}
	result := d.Dispatch(context.Background(), testEvent(), contacts)

	if result.Outcome != OutcomePartial {
		t.Errorf("outcome = %q, want partial", result.Outcome)
	}
	if result.SuccessCount != 2 || result.TotalCount != 3 {
		t.Errorf("counts = %d/%d, want 2/3", result.SuccessCount, result.TotalCount)
	}
}

func TestDispatchEmptyRosterUsesFallbackNumber(t *testing.T) {
	messenger := &fakeMessenger{}
	d := NewDispatcher(&fakeSpeaker{}, history.NewMemorySink(), messenger, "+15550100", "Alex")

	result := d.Dispatch(context.Background(), testEvent(), nil)

	if result.TotalCount != 1 {
		t.Fatalf("expected exactly 1 fallback attempt, got %d", result.TotalCount)
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != "+15550100" {
		t.Errorf("fallback number not notified: %v", messenger.sent)
	}
	if result.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q, want success", result.Outcome)
	}
}

func TestDispatchFailedWhenSpeechAndHistoryFail(t *testing.T) {
	speaker := &fakeSpeaker{err: errors.New("no audio device")}
	d := NewDispatcher(speaker, failingSink{}, nil, "", "Alex")

	result := d.Dispatch(context.Background(), testEvent(), nil)

	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %q, want failed", result.Outcome)
	}
	if result.SpeechErr == nil || result.HistoryErr == nil {
		t.Error("expected both channel errors to be reported")
	}
}

func TestDispatchSpeechFailureAloneIsPartial(t *testing.T) {
	speaker := &fakeSpeaker{err: errors.New("no audio device")}
	d := NewDispatcher(speaker, history.NewMemorySink(), &fakeMessenger{}, "+15550100", "Alex")

	result := d.Dispatch(context.Background(), testEvent(), nil)

	if result.Outcome != OutcomePartial {
		t.Errorf("outcome = %q, want partial", result.Outcome)
	}
}

func TestDispatchUsesEventMessageWhenSet(t *testing.T) {
	speaker := &fakeSpeaker{}
	d := NewDispatcher(speaker, nil, nil, "", "Alex")

	event := testEvent()
	event.Message = "Please send help to the kitchen now"
	d.Dispatch(context.Background(), event, nil)

	if speaker.spoken[0] != event.Message {
		t.Errorf("spoken = %q, want the event message", speaker.spoken[0])
	}
}

func TestLoadContacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	data := `contacts:
  - name: Maria
    phone: "+15550111"
  - name: No Phone
    phone: ""
  - name: Sam
    phone: "+15550112"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	contacts, err := LoadContacts(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts after dropping the phoneless entry, got %d", len(contacts))
	}
	if contacts[0].Name != "Maria" || contacts[1].Phone != "+15550112" {
		t.Errorf("unexpected contacts: %+v", contacts)
	}
}

func TestLoadContactsMissingFile(t *testing.T) {
	if _, err := LoadContacts(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
