package speech

import (
	"fmt"

	"github.com/echovoice/echovoice/internal/config"
)

// NewSpeaker creates the appropriate Speaker from application config.
func NewSpeaker(cfg config.SpeechConfig) (Speaker, error) {
	switch cfg.Provider {
	case "elevenlabs":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("elevenlabs speech provider requires an API key")
		}
		return NewElevenLabsClient(ElevenLabsConfig{
			APIKey:  cfg.APIKey,
			VoiceID: cfg.VoiceID,
		}), nil
	case "log", "":
		return NewLogSpeaker(), nil
	default:
		return nil, fmt.Errorf("unsupported speech provider: %q", cfg.Provider)
	}
}
