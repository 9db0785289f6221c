package suggest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// SuggestionCount is the fixed size of every returned suggestion list.
const SuggestionCount = 4

// emotionPhrases maps each emotion label to its candidate phrases.
// Emotion-driven phrases default to high priority.
var emotionPhrases = map[string][]types.Suggestion{
	types.EmotionSad: {
		{Phrase: "I am feeling sad right now", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "I could use some comfort please", Priority: types.PriorityHigh, Category: types.CategoryComfort},
		{Phrase: "Can you sit with me for a while?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
	},
	types.EmotionHappy: {
		{Phrase: "I am feeling really happy today", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "This is a wonderful moment for me", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "I would love to share some good news", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
	},
	types.EmotionAngry: {
		{Phrase: "I am feeling frustrated right now", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "I need a moment to calm down", Priority: types.PriorityHigh, Category: types.CategoryPersonalCare},
		{Phrase: "Please give me some space for now", Priority: types.PriorityMedium, Category: types.CategoryPrivacy},
	},
	types.EmotionFearful: {
		{Phrase: "I am feeling scared right now", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "Please stay close to me now", Priority: types.PriorityHigh, Category: types.CategoryComfort},
		{Phrase: "Can you tell me what is happening?", Priority: types.PriorityMedium, Category: types.CategoryAssistance},
	},
	types.EmotionDisgusted: {
		{Phrase: "Something here is bothering me a lot", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "I would like to move somewhere else", Priority: types.PriorityHigh, Category: types.CategoryPracticalNeed},
	},
	types.EmotionSurprised: {
		{Phrase: "I was not expecting that at all", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
		{Phrase: "Can you explain what just happened?", Priority: types.PriorityMedium, Category: types.CategoryAssistance},
	},
	types.EmotionNeutral: {
		{Phrase: "I am doing okay right now", Priority: types.PriorityMedium, Category: types.CategoryEmotionalExpression},
		{Phrase: "Is there anything we should do today?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
	},
}

// locationPhrases maps location keywords to their candidate phrases.
// Matching is case-insensitive substring matching on the location label.
var locationPhrases = []struct {
	keyword string
	phrases []types.Suggestion
}{
	{"kitchen", []types.Suggestion{
		{Phrase: "I would like something to eat", Priority: types.PriorityHigh, Category: types.CategoryNeeds},
		{Phrase: "Could I have something to drink?", Priority: types.PriorityHigh, Category: types.CategoryNeeds},
	}},
	{"bedroom", []types.Suggestion{
		{Phrase: "I would like to rest for a while", Priority: types.PriorityHigh, Category: types.CategoryNeeds},
		{Phrase: "I need help getting dressed today", Priority: types.PriorityHigh, Category: types.CategoryAssistance},
	}},
	{"bathroom", []types.Suggestion{
		{Phrase: "I need some assistance in here", Priority: types.PriorityHigh, Category: types.CategoryAssistance},
		{Phrase: "Please wait outside until I call", Priority: types.PriorityMedium, Category: types.CategoryPrivacy},
	}},
	{"living", []types.Suggestion{
		{Phrase: "Could we watch something together now?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
		{Phrase: "I would like to sit by the window", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
	}},
	{"park", []types.Suggestion{
		{Phrase: "I am enjoying the fresh air here", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
		{Phrase: "Could we walk a little further?", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
	}},
	{"hospital", []types.Suggestion{
		{Phrase: "Can you tell me about my treatment?", Priority: types.PriorityHigh, Category: types.CategoryAssistance},
		{Phrase: "I would like to speak with the nurse", Priority: types.PriorityHigh, Category: types.CategoryAssistance},
	}},
	{"car", []types.Suggestion{
		{Phrase: "How long until we arrive there?", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
		{Phrase: "I need a short break from the drive", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
	}},
	{"vehicle", []types.Suggestion{
		{Phrase: "How long until we arrive there?", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
		{Phrase: "I need a short break from the drive", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
	}},
}

// timePhrases maps each time-of-day bucket to weekday and weekend candidates.
var timePhrases = map[string]struct {
	weekday []types.Suggestion
	weekend []types.Suggestion
}{
	types.TimeEarlyMorning: {
		weekday: []types.Suggestion{{Phrase: "Good morning, I am waking up slowly", Priority: types.PriorityMedium, Category: types.CategoryGreeting}},
		weekend: []types.Suggestion{{Phrase: "Good morning, let us take it easy today", Priority: types.PriorityMedium, Category: types.CategoryGreeting}},
	},
	types.TimeMorning: {
		weekday: []types.Suggestion{{Phrase: "I need help getting ready this morning", Priority: types.PriorityMedium, Category: types.CategoryAssistance}},
		weekend: []types.Suggestion{{Phrase: "Could we do something fun this morning?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection}},
	},
	types.TimeLunch: {
		weekday: []types.Suggestion{{Phrase: "I would like to have lunch now", Priority: types.PriorityMedium, Category: types.CategoryNeeds}},
		weekend: []types.Suggestion{{Phrase: "Could we have lunch together today?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection}},
	},
	types.TimeAfternoon: {
		weekday: []types.Suggestion{{Phrase: "Could we take a short walk this afternoon?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection}},
		weekend: []types.Suggestion{{Phrase: "I would enjoy some quiet time this afternoon", Priority: types.PriorityMedium, Category: types.CategoryPersonalCare}},
	},
	types.TimeEvening: {
		weekday: []types.Suggestion{{Phrase: "I am ready for dinner soon", Priority: types.PriorityMedium, Category: types.CategoryNeeds}},
		weekend: []types.Suggestion{{Phrase: "Could we watch a movie this evening?", Priority: types.PriorityMedium, Category: types.CategorySocialConnection}},
	},
	types.TimeNight: {
		weekday: []types.Suggestion{{Phrase: "I am getting ready to sleep", Priority: types.PriorityMedium, Category: types.CategoryPersonalCare}},
		weekend: []types.Suggestion{{Phrase: "I would like to stay up a little longer", Priority: types.PriorityMedium, Category: types.CategoryNeeds}},
	},
}

// paddingPhrases fill the list up to SuggestionCount when the rule tables
// yield fewer than four unique candidates. All are medium priority.
var paddingPhrases = []types.Suggestion{
	{Phrase: "I appreciate your help very much", Priority: types.PriorityMedium, Category: types.CategoryGratitude},
	{Phrase: "Please stay with me for a moment", Priority: types.PriorityMedium, Category: types.CategoryComfort},
	{Phrase: "I would like some company right now", Priority: types.PriorityMedium, Category: types.CategorySocialConnection},
	{Phrase: "Thank you for checking on me today", Priority: types.PriorityMedium, Category: types.CategoryGratitude},
}

// FallbackSuggestions produces the deterministic rule-based suggestion set for
// the given context at the given instant. It is a pure function: identical
// context and time bucket always yield the same four suggestions.
//
// Candidates are collected in fixed rule-source order (emotion, location,
// time, person); within equal priority the earlier source wins, which is the
// documented tie-break for candidates beyond the first four.
func FallbackSuggestions(c types.Context, now time.Time) []types.Suggestion {
	emotion := c.Emotion
	if emotion == "" || !types.IsValidEmotion(emotion) {
		emotion = types.EmotionNeutral
	}

	var candidates []types.Suggestion
	candidates = append(candidates, emotionPhrases[emotion]...)

	if c.LocationLabel != "" {
		label := strings.ToLower(c.LocationLabel)
		for _, entry := range locationPhrases {
			if strings.Contains(label, entry.keyword) {
				candidates = append(candidates, entry.phrases...)
			}
		}
	}

	bucket := c.TimeOfDay
	if bucket == "" {
		bucket = types.TimeBucketForHour(now.Hour())
	}
	if tp, ok := timePhrases[bucket]; ok {
		if isWeekend(now) {
			candidates = append(candidates, tp.weekend...)
		} else {
			candidates = append(candidates, tp.weekday...)
		}
	}

	if c.PersonLabel != "" {
		candidates = append(candidates, types.Suggestion{
			Phrase:   fmt.Sprintf("Thank you for being here, %s", c.PersonLabel),
			Priority: types.PriorityMedium,
			Category: types.CategoryGratitude,
		})
	}

	candidates = applyTone(candidates, c.ToneModifier)

	return Finalize(candidates)
}

// Finalize enforces the suggestion list invariants: deduplicate by exact
// phrase text (first occurrence wins), order high -> medium -> low stable
// within each tier, then truncate or pad to exactly SuggestionCount entries.
func Finalize(candidates []types.Suggestion) []types.Suggestion {
	seen := make(map[string]bool, len(candidates))
	unique := make([]types.Suggestion, 0, len(candidates))
	for _, s := range candidates {
		if seen[s.Phrase] {
			continue
		}
		seen[s.Phrase] = true
		unique = append(unique, s)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Priority.Rank() < unique[j].Priority.Rank()
	})

	if len(unique) > SuggestionCount {
		return unique[:SuggestionCount]
	}

	for _, pad := range paddingPhrases {
		if len(unique) == SuggestionCount {
			break
		}
		if seen[pad.Phrase] {
			continue
		}
		seen[pad.Phrase] = true
		unique = append(unique, pad)
	}

	return unique
}

// applyTone rewrites candidate phrases toward a formal or casual register.
// A rewrite that would leave the 4-15 word bounds is discarded in favour of
// the original phrase. The balanced tone leaves phrases untouched.
func applyTone(candidates []types.Suggestion, tone string) []types.Suggestion {
	var replacer *strings.Replacer
	switch tone {
	case types.ToneFormal:
		replacer = strings.NewReplacer(
			"I need", "I would appreciate assistance with",
			"Can you", "Could you please",
		)
	case types.ToneCasual:
		replacer = strings.NewReplacer(
			"I would like", "I want",
			"Could you please", "Can you",
		)
	default:
		return candidates
	}

	out := make([]types.Suggestion, len(candidates))
	for i, s := range candidates {
		rewritten := replacer.Replace(s.Phrase)
		if rewritten != s.Phrase && types.PhraseWithinLimits(rewritten) {
			s.Phrase = rewritten
		}
		out[i] = s
	}
	return out
}

// isWeekend reports whether t falls on a Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
