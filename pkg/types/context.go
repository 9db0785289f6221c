package types

import (
	"strings"
	"time"
)

// Signal is a single timestamped, confidence-scored reading from one detector.
// It is owned by its detector and overwritten on each new reading; the core
// never persists signals.
type Signal struct {
	Kind       SignalKind `json:"kind"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Context is the fused snapshot of all detector signals plus manual overrides.
// It is an immutable value created fresh on every fusion pass; an empty string
// means the corresponding signal is unavailable.
type Context struct {
	Emotion       string `json:"emotion,omitempty"`
	TimeOfDay     string `json:"time_of_day,omitempty"`
	LocationLabel string `json:"location_label,omitempty"`
	PersonLabel   string `json:"person_label,omitempty"`
	ToneModifier  string `json:"tone_modifier,omitempty"`
}

// Equal reports whether two context snapshots carry identical fields.
func (c Context) Equal(other Context) bool {
	return c == other
}

// IsEmpty reports whether no signal or override is present at all.
func (c Context) IsEmpty() bool {
	return c == Context{}
}

// Suggestion is a ranked, categorized candidate phrase for the user to speak.
// Suggestions are value objects created per request and replaced on the next
// request; lists are deduplicated by exact phrase text and ordered
// high -> medium -> low, stable within each tier.
type Suggestion struct {
	Phrase   string   `json:"phrase"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
}

// Suggestion phrase length bounds, in words.
const (
	MinPhraseWords = 4
	MaxPhraseWords = 15
)

// WordCount returns the number of whitespace-separated words in phrase.
func WordCount(phrase string) int {
	return len(strings.Fields(phrase))
}

// PhraseWithinLimits reports whether phrase is between 4 and 15 words.
func PhraseWithinLimits(phrase string) bool {
	n := WordCount(phrase)
	return n >= MinPhraseWords && n <= MaxPhraseWords
}

// EmergencyEvent is created when an emergency trigger fires. It is consumed
// exactly once by the escalation dispatcher and is terminal after dispatch or
// cancellation.
type EmergencyEvent struct {
	ID               string      `json:"id"`
	TriggerKind      TriggerKind `json:"trigger_kind"`
	ArmedAt          time.Time   `json:"armed_at"`
	CountdownSeconds int         `json:"countdown_seconds"`
	Context          Context     `json:"context"`
	Message          string      `json:"message"`
}

// Contact is an emergency contact supplied externally. The core treats the
// contact list as read-only input to escalation.
type Contact struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
}
