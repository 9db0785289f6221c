// Package speech turns suggestion phrases and emergency alerts into audible
// output. The default provider just logs the phrase, which keeps the
// assistant fully functional in development and in tests; the ElevenLabs
// provider synthesizes real audio.
package speech

import (
	"context"
	"log"
)

// Params controls prosody for a single utterance.
type Params struct {
	Rate   float64 // playback rate multiplier, 1.0 is normal
	Pitch  float64 // pitch multiplier, 1.0 is normal
	Volume float64 // 0.0 to 1.0
}

// DefaultParams returns the params used for ordinary phrase speaking.
func DefaultParams() Params {
	return Params{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}

// UrgentParams returns the slower, higher-pitched delivery used for
// emergency announcements so they cut through ambient noise.
func UrgentParams() Params {
	return Params{Rate: 0.7, Pitch: 1.3, Volume: 1.0}
}

// Speaker speaks a phrase aloud. Implementations must be safe for concurrent
// use; the assistant speaks from both user actions and emergency dispatch.
type Speaker interface {
	Speak(ctx context.Context, text string, params Params) error
}

// LogSpeaker writes utterances to the process log instead of an audio
// device.
type LogSpeaker struct{}

// NewLogSpeaker creates a log-only speaker.
func NewLogSpeaker() *LogSpeaker {
	return &LogSpeaker{}
}

// Speak logs the utterance.
func (s *LogSpeaker) Speak(ctx context.Context, text string, params Params) error {
	log.Printf("SPEAK (rate=%.1f pitch=%.1f): %s", params.Rate, params.Pitch, text)
	return nil
}

var _ Speaker = (*LogSpeaker)(nil)
