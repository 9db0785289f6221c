// Package suggest produces ranked, deduplicated phrase suggestions from a
// fused context snapshot. A generative backend is tried first; a deterministic
// rule-based fallback guarantees the caller always receives exactly four
// speakable phrases, even fully offline.
package suggest

import (
	"fmt"
	"strings"

	"github.com/echovoice/echovoice/pkg/types"
)

// BuildPrompt generates a strict JSON-only prompt asking the generative
// backend for exactly four suggestions spanning the four fixed categories.
// Context fields that are absent are described as unknown rather than omitted
// so the model does not invent them.
func BuildPrompt(c types.Context) string {
	var sb strings.Builder

	sb.WriteString("TASK: Suggest phrases a non-speaking person could say aloud right now.\n")
	sb.WriteString("OUTPUT: ONLY a valid JSON array. NO markdown. NO code blocks. NO explanation.\n\n")

	sb.WriteString("SITUATION:\n")
	fmt.Fprintf(&sb, "- Emotion: %s\n", orUnknown(c.Emotion))
	fmt.Fprintf(&sb, "- Time of day: %s\n", orUnknown(c.TimeOfDay))
	fmt.Fprintf(&sb, "- Location: %s\n", orUnknown(c.LocationLabel))
	fmt.Fprintf(&sb, "- Nearby person: %s\n", orUnknown(c.PersonLabel))
	fmt.Fprintf(&sb, "- Communication style: %s\n", orDefault(c.ToneModifier, types.ToneBalanced))

	sb.WriteString(`
RULES (STRICT):
1. Return EXACTLY 4 suggestions.
2. One suggestion per category, in this order: emotional_expression, practical_need, social_connection, personal_care.
3. Each phrase is 4 to 15 words, first person, ready to speak aloud.
4. priority is one of: high, medium, low.
5. No duplicate phrases.

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
[{"phrase":"I am feeling calm right now","priority":"high","category":"emotional_expression"}]`)

	return sb.String()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
