package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/echovoice/echovoice/pkg/types"
)

// suggestionResponse is a single suggestion item in the backend reply.
type suggestionResponse struct {
	Phrase   string `json:"phrase"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

// suggestionEnvelope tolerates backends that wrap the array in an object.
type suggestionEnvelope struct {
	Suggestions []suggestionResponse `json:"suggestions"`
}

// extractJSONArray extracts the first complete JSON array from a string that
// may contain extra text. This handles models that add explanations before or
// after the JSON despite instructions.
func extractJSONArray(text string) string {
	// Remove common markdown code block markers
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	if start == -1 {
		return text // No array found, return as-is and let the parser fail
	}

	bracketCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		// Only count brackets outside of strings
		if !inString {
			switch char {
			case '[':
				bracketCount++
			case ']':
				bracketCount--
				if bracketCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete array found, return as-is
}

// ParseSuggestionResponse parses a backend reply into suggestions, filtering
// out invalid entries. Phrases outside the 4-15 word bounds or with unknown
// priorities are skipped rather than failing the whole batch; an error is
// returned only when no JSON can be decoded at all.
func ParseSuggestionResponse(raw string) ([]types.Suggestion, error) {
	cleaned := extractJSONArray(raw)

	var items []suggestionResponse
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		// Some backends wrap the array in {"suggestions": [...]}.
		var envelope suggestionEnvelope
		if envErr := json.Unmarshal([]byte(strings.TrimSpace(raw)), &envelope); envErr != nil || envelope.Suggestions == nil {
			return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
		}
		items = envelope.Suggestions
	}

	valid := make([]types.Suggestion, 0, len(items))
	for _, item := range items {
		phrase := strings.TrimSpace(item.Phrase)
		if phrase == "" || !types.PhraseWithinLimits(phrase) {
			continue
		}

		priority := types.Priority(strings.ToLower(strings.TrimSpace(item.Priority)))
		if !types.IsValidPriority(priority) {
			priority = types.PriorityMedium
		}

		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = types.CategoryPracticalNeed
		}

		valid = append(valid, types.Suggestion{
			Phrase:   phrase,
			Priority: priority,
			Category: category,
		})
	}

	return valid, nil
}
