// Package types defines the core data structures for the EchoVoice assistant.
// These types represent detector signals, fused context snapshots, phrase
// suggestions, and emergency events shared by the detection, suggestion, and
// escalation subsystems.
package types

// SignalKind identifies which detector produced a signal.
type SignalKind string

// Signal kind constants
const (
	// SignalEmotion is a facial-emotion classification reading
	SignalEmotion SignalKind = "emotion"

	// SignalPresence is a known-person recognition reading
	SignalPresence SignalKind = "presence"

	// SignalLocation is a geolocation / reverse-geocode reading
	SignalLocation SignalKind = "location"

	// SignalTime is a clock-derived time-of-day reading
	SignalTime SignalKind = "time"
)

// Emotion label constants - the seven labels reported by the emotion classifier.
const (
	EmotionHappy     = "happy"
	EmotionSad       = "sad"
	EmotionAngry     = "angry"
	EmotionFearful   = "fearful"
	EmotionDisgusted = "disgusted"
	EmotionSurprised = "surprised"
	EmotionNeutral   = "neutral"
)

// ValidEmotions is a slice of all valid emotion labels for validation
var ValidEmotions = []string{
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionFearful,
	EmotionDisgusted,
	EmotionSurprised,
	EmotionNeutral,
}

// IsValidEmotion checks if the given emotion label is valid
func IsValidEmotion(emotion string) bool {
	for _, valid := range ValidEmotions {
		if valid == emotion {
			return true
		}
	}
	return false
}

// Priority ranks a suggestion within a ranked list.
type Priority string

// Priority constants, ordered high to low.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriorities is a slice of all valid priorities for validation
var ValidPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// IsValidPriority checks if the given priority is valid
func IsValidPriority(p Priority) bool {
	for _, valid := range ValidPriorities {
		if valid == p {
			return true
		}
	}
	return false
}

// Rank returns a sortable weight for the priority: lower is more important.
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Suggestion category constants.
// The first four are the fixed categories requested from the generative
// backend; the rest are produced by the rule-based fallback tables.
const (
	CategoryEmotionalExpression = "emotional_expression"
	CategoryPracticalNeed       = "practical_need"
	CategorySocialConnection    = "social_connection"
	CategoryPersonalCare        = "personal_care"

	CategoryGreeting   = "greeting"
	CategoryAssistance = "assistance"
	CategoryNeeds      = "needs"
	CategoryGratitude  = "gratitude"
	CategoryPrivacy    = "privacy"
	CategoryComfort    = "comfort"
)

// ValidCategories is a slice of all valid suggestion categories for validation
var ValidCategories = []string{
	CategoryEmotionalExpression,
	CategoryPracticalNeed,
	CategorySocialConnection,
	CategoryPersonalCare,
	CategoryGreeting,
	CategoryAssistance,
	CategoryNeeds,
	CategoryGratitude,
	CategoryPrivacy,
	CategoryComfort,
}

// IsValidCategory checks if the given category is valid
func IsValidCategory(category string) bool {
	for _, valid := range ValidCategories {
		if valid == category {
			return true
		}
	}
	return false
}

// TriggerKind identifies which gesture armed an emergency.
type TriggerKind string

// Trigger kind constants
const (
	// TriggerRapidTap is three taps within the rolling tap window
	TriggerRapidTap TriggerKind = "rapid_tap"

	// TriggerLongPress is a continuous hold for the long-press duration
	TriggerLongPress TriggerKind = "long_press"
)

// Tone modifier constants - communication style applied to suggestions.
const (
	ToneFormal   = "formal"
	ToneBalanced = "balanced"
	ToneCasual   = "casual"
)

// ValidTones is a slice of all valid tone modifiers for validation
var ValidTones = []string{ToneFormal, ToneBalanced, ToneCasual}

// IsValidTone checks if the given tone modifier is valid
func IsValidTone(tone string) bool {
	for _, valid := range ValidTones {
		if valid == tone {
			return true
		}
	}
	return false
}

// Time-of-day bucket constants produced by the clock detector.
const (
	TimeEarlyMorning = "early-morning"
	TimeMorning      = "morning"
	TimeLunch        = "lunch"
	TimeAfternoon    = "afternoon"
	TimeEvening      = "evening"
	TimeNight        = "night"
)

// ValidTimeBuckets is a slice of all valid time-of-day buckets for validation
var ValidTimeBuckets = []string{
	TimeEarlyMorning,
	TimeMorning,
	TimeLunch,
	TimeAfternoon,
	TimeEvening,
	TimeNight,
}

// TimeBucketForHour maps an hour of day (0-23) to its time-of-day bucket.
func TimeBucketForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 8:
		return TimeEarlyMorning
	case hour >= 8 && hour < 11:
		return TimeMorning
	case hour >= 11 && hour < 14:
		return TimeLunch
	case hour >= 14 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}
