// Package notify provides cross-process event notification between the
// EchoVoice assistant and companion caregiver tooling using filesystem
// events. The assistant writes one file per event; any watching process
// consumes and removes it.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event types emitted by the assistant.
const (
	EventSuggestionsUpdated  = "suggestions.updated"
	EventPhraseSpoken        = "phrase.spoken"
	EventEmergencyArmed      = "emergency.armed"
	EventEmergencyDispatched = "emergency.dispatched"
	EventEmergencyCancelled  = "emergency.cancelled"
)

// Event is the payload written to an event file. RefID points at the record
// the event concerns: a history record ID for spoken phrases, an emergency
// event ID for emergency transitions.
type Event struct {
	Type  string `json:"type"`
	RefID string `json:"ref_id"`
	Time  int64  `json:"time"`
}

// EventWriter writes notification event files to a shared directory.
type EventWriter struct {
	dir string
}

// NewEventWriter creates a writer that emits events to {dataPath}/events/.
func NewEventWriter(dataPath string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataPath, "events")}
}

// Notify writes an event file with the given type.
// Safe to call concurrently. Errors are returned but not fatal.
func (w *EventWriter) Notify(eventType, refID string) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	evt := Event{
		Type:  eventType,
		RefID: refID,
		Time:  time.Now().UnixNano(),
	}
	data, _ := json.Marshal(evt)
	filename := fmt.Sprintf("%d-%s.event", evt.Time, sanitizeID(refID))
	path := filepath.Join(w.dir, filename)
	return os.WriteFile(path, data, 0o600)
}

// sanitizeID replaces characters unsafe for filenames.
func sanitizeID(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		if id[i] == '/' || id[i] == ':' {
			out[i] = '_'
		} else {
			out[i] = id[i]
		}
	}
	return string(out)
}
