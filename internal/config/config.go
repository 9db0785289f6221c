// Package config provides configuration management for EchoVoice.
// It loads settings from environment variables with the ECHOVOICE_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the EchoVoice assistant.
type Config struct {
	Server    ServerConfig
	Security  SecurityConfig
	LLM       LLMConfig
	Speech    SpeechConfig
	Messaging MessagingConfig
	Storage   StorageConfig
	Detect    DetectConfig
	Trigger   TriggerConfig
	User      UserConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6464)
	Host string // Server host (default: 127.0.0.1)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LLMConfig contains generative backend configuration for the suggestion engine.
type LLMConfig struct {
	Provider string        // LLM provider: ollama, openai (default: ollama)
	BaseURL  string        // Provider base URL; empty uses the provider default
	Model    string        // Model name; empty uses the provider default
	APIKey   string        // API key for hosted providers
	Timeout  time.Duration // Request timeout (default: 5s)
}

// SpeechConfig contains text-to-speech output configuration.
type SpeechConfig struct {
	Provider    string  // Speech provider: log, elevenlabs (default: log)
	APIKey      string  // ElevenLabs API key
	VoiceID     string  // ElevenLabs voice ID (default: Aria)
	SpeechSpeed float64 // Playback rate multiplier (default: 1.0)
}

// MessagingConfig contains outbound SMS channel configuration.
type MessagingConfig struct {
	TwilioAccountSID string // Twilio account SID
	TwilioAuthToken  string // Twilio auth token
	TwilioFromNumber string // Sender phone number; also the fallback destination
}

// StorageConfig contains history sink configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: memory, sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory (default: ./data)
	PostgresDSN   string // Postgres connection string when engine is postgres
}

// DetectConfig contains detector cadence and threshold settings.
type DetectConfig struct {
	EmotionInterval   time.Duration // Emotion sampling interval (default: 3s)
	PresenceInterval  time.Duration // Presence sampling interval (default: 3s)
	PresenceThreshold float64       // Minimum match confidence to report a person (default: 0.4)
	ClockInterval     time.Duration // Time-of-day tick interval (default: 60s)
	ContextDetection  bool          // Master switch for automatic context detection (default: true)
}

// TriggerConfig contains emergency gesture timing settings.
type TriggerConfig struct {
	LongPressDuration time.Duration // Continuous hold required to fire (default: 5s)
	RapidTapCount     int           // Taps required within the window (default: 3)
	TapResetWindow    time.Duration // Rolling window since the last tap (default: 2s)
	ConfirmCountdown  time.Duration // Auto-confirm countdown once fired (default: 10s)
}

// UserConfig contains user-specific settings.
type UserConfig struct {
	UserName     string // Display name used in emergency alerts
	ToneModifier string // Communication style: formal, balanced, casual (default: balanced)
	SaveHistory  bool   // Append spoken phrases to the history sink (default: true)
	ContactsPath string // Path to the YAML emergency contact roster
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the ECHOVOICE_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("ECHOVOICE_PORT", 6464),
			Host: getEnv("ECHOVOICE_HOST", "127.0.0.1"),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("ECHOVOICE_SECURITY_MODE", "development"),
			APIToken:     getEnv("ECHOVOICE_API_TOKEN", ""),
		},
		LLM: LLMConfig{
			Provider: getEnv("ECHOVOICE_LLM_PROVIDER", "ollama"),
			BaseURL:  getEnv("ECHOVOICE_LLM_URL", ""),
			Model:    getEnv("ECHOVOICE_LLM_MODEL", ""),
			APIKey:   getEnv("ECHOVOICE_LLM_API_KEY", ""),
			Timeout:  getEnvDuration("ECHOVOICE_LLM_TIMEOUT", 5*time.Second),
		},
		Speech: SpeechConfig{
			Provider:    getEnv("ECHOVOICE_SPEECH_PROVIDER", "log"),
			APIKey:      getEnv("ECHOVOICE_ELEVENLABS_API_KEY", ""),
			VoiceID:     getEnv("ECHOVOICE_ELEVENLABS_VOICE_ID", "Aria"),
			SpeechSpeed: getEnvFloat("ECHOVOICE_SPEECH_SPEED", 1.0),
		},
		Messaging: MessagingConfig{
			TwilioAccountSID: getEnv("ECHOVOICE_TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:  getEnv("ECHOVOICE_TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber: getEnv("ECHOVOICE_TWILIO_PHONE_NUMBER", ""),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("ECHOVOICE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("ECHOVOICE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("ECHOVOICE_POSTGRES_DSN", ""),
		},
		Detect: DetectConfig{
			EmotionInterval:   getEnvDuration("ECHOVOICE_EMOTION_INTERVAL", 3*time.Second),
			PresenceInterval:  getEnvDuration("ECHOVOICE_PRESENCE_INTERVAL", 3*time.Second),
			PresenceThreshold: getEnvFloat("ECHOVOICE_PRESENCE_THRESHOLD", 0.4),
			ClockInterval:     getEnvDuration("ECHOVOICE_CLOCK_INTERVAL", 60*time.Second),
			ContextDetection:  getEnvBool("ECHOVOICE_CONTEXT_DETECTION", true),
		},
		Trigger: TriggerConfig{
			LongPressDuration: getEnvDuration("ECHOVOICE_LONG_PRESS_DURATION", 5*time.Second),
			RapidTapCount:     getEnvInt("ECHOVOICE_RAPID_TAP_COUNT", 3),
			TapResetWindow:    getEnvDuration("ECHOVOICE_TAP_RESET_WINDOW", 2*time.Second),
			ConfirmCountdown:  getEnvDuration("ECHOVOICE_CONFIRM_COUNTDOWN", 10*time.Second),
		},
		User: UserConfig{
			UserName:     getEnv("ECHOVOICE_USER_NAME", ""),
			ToneModifier: getEnv("ECHOVOICE_TONE", "balanced"),
			SaveHistory:  getEnvBool("ECHOVOICE_SAVE_HISTORY", true),
			ContactsPath: getEnv("ECHOVOICE_CONTACTS_PATH", ""),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration syntax,
// e.g. "3s", "500ms") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
