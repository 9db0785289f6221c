package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AudioPlayer plays synthesized audio bytes on an output device.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte) error
}

// ElevenLabsClient synthesizes speech through the ElevenLabs text-to-speech
// API and hands the audio to a player. With a nil player the audio is
// synthesized and discarded, which still exercises the full network path.
type ElevenLabsClient struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
	player  AudioPlayer
}

// ElevenLabsConfig holds ElevenLabs client configuration.
type ElevenLabsConfig struct {
	// APIKey is the ElevenLabs API key (required)
	APIKey string

	// VoiceID is the voice to synthesize with (default: Aria)
	VoiceID string

	// BaseURL is the API base URL (default: https://api.elevenlabs.io)
	BaseURL string

	// Timeout is the request timeout duration (default: 10s)
	Timeout time.Duration

	// Player receives the synthesized audio; nil discards it
	Player AudioPlayer
}

// synthesizeRequest is the request body for the text-to-speech endpoint.
type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// NewElevenLabsClient creates a new ElevenLabs client with the given
// configuration.
func NewElevenLabsClient(config ElevenLabsConfig) *ElevenLabsClient {
	if config.VoiceID == "" {
		config.VoiceID = "Aria"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &ElevenLabsClient{
		apiKey:  config.APIKey,
		voiceID: config.VoiceID,
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		player: config.Player,
	}
}

// Speak synthesizes the text and plays it. The prosody params map onto the
// voice settings: rate becomes speed, and pitch above normal lowers
// stability so urgent announcements sound more animated.
func (c *ElevenLabsClient) Speak(ctx context.Context, text string, params Params) error {
	audio, err := c.Synthesize(ctx, text, params)
	if err != nil {
		return err
	}

	if c.player == nil {
		return nil
	}
	if err := c.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

// Synthesize requests audio for the text and returns the raw bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, params Params) ([]byte, error) {
	stability := 0.5
	if params.Pitch > 1.0 {
		stability = 0.3
	}

	reqBody := synthesizeRequest{
		Text:    text,
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: voiceSettings{
			Stability:       stability,
			SimilarityBoost: 0.75,
			Speed:           params.Rate,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	return audio, nil
}

var _ Speaker = (*ElevenLabsClient)(nil)
