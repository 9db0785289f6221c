package suggest

import (
	"reflect"
	"testing"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// monday and saturday are fixed instants at lunch time for deterministic tests.
var (
	monday   = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
)

func assertValidSuggestionList(t *testing.T, got []types.Suggestion) {
	t.Helper()

	if len(got) != SuggestionCount {
		t.Fatalf("expected exactly %d suggestions, got %d", SuggestionCount, len(got))
	}

	seen := make(map[string]bool)
	for i, s := range got {
		if !types.PhraseWithinLimits(s.Phrase) {
			t.Errorf("suggestion %d %q has %d words, want 4-15", i, s.Phrase, types.WordCount(s.Phrase))
		}
		if seen[s.Phrase] {
			t.Errorf("duplicate phrase %q", s.Phrase)
		}
		seen[s.Phrase] = true
		if !types.IsValidPriority(s.Priority) {
			t.Errorf("suggestion %d has invalid priority %q", i, s.Priority)
		}
		if !types.IsValidCategory(s.Category) {
			t.Errorf("suggestion %d has invalid category %q", i, s.Category)
		}
		if i > 0 && got[i-1].Priority.Rank() > s.Priority.Rank() {
			t.Errorf("suggestions out of priority order at %d: %q before %q", i, got[i-1].Priority, s.Priority)
		}
	}
}

func TestFallbackSuggestionsInvariants(t *testing.T) {
	contexts := []types.Context{
		{},
		{Emotion: types.EmotionHappy},
		{Emotion: types.EmotionSad, PersonLabel: "Maria"},
		{Emotion: types.EmotionAngry, LocationLabel: "Home Kitchen"},
		{Emotion: types.EmotionFearful, LocationLabel: "City Hospital", TimeOfDay: types.TimeNight},
		{Emotion: types.EmotionDisgusted, ToneModifier: types.ToneFormal},
		{Emotion: types.EmotionSurprised, ToneModifier: types.ToneCasual},
		{Emotion: types.EmotionNeutral, LocationLabel: "Riverside Park", PersonLabel: "Sam"},
		{Emotion: "not-an-emotion"},
		{LocationLabel: "the car on the highway"},
	}

	for _, c := range contexts {
		got := FallbackSuggestions(c, monday)
		assertValidSuggestionList(t, got)
	}
}

func TestFallbackSuggestionsDeterministic(t *testing.T) {
	c := types.Context{
		Emotion:       types.EmotionSad,
		LocationLabel: "bedroom",
		PersonLabel:   "Maria",
		TimeOfDay:     types.TimeEvening,
	}

	first := FallbackSuggestions(c, monday)
	second := FallbackSuggestions(c, monday)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestKitchenContextIncludesFoodPhrase(t *testing.T) {
	c := types.Context{
		Emotion:       types.EmotionHappy,
		LocationLabel: "Kitchen",
	}

	got := FallbackSuggestions(c, monday)
	assertValidSuggestionList(t, got)

	found := false
	for _, s := range got {
		if s.Phrase == "I would like something to eat" || s.Phrase == "Could I have something to drink?" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("kitchen context produced no food or drink phrase: %v", got)
	}
}

func TestLocationMatchingIsCaseInsensitiveSubstring(t *testing.T) {
	got := FallbackSuggestions(types.Context{LocationLabel: "St. Mary's HOSPITAL, Ward 3"}, monday)

	found := false
	for _, s := range got {
		if s.Phrase == "Can you tell me about my treatment?" || s.Phrase == "I would like to speak with the nurse" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("hospital label did not match hospital phrases: %v", got)
	}
}

func TestPersonContextIncludesGratitudePhrase(t *testing.T) {
	got := FallbackSuggestions(types.Context{PersonLabel: "Maria"}, monday)

	found := false
	for _, s := range got {
		if s.Phrase == "Thank you for being here, Maria" {
			found = true
			if s.Category != types.CategoryGratitude {
				t.Errorf("gratitude phrase has category %q", s.Category)
			}
		}
	}
	if !found {
		t.Errorf("person context produced no gratitude phrase: %v", got)
	}
}

func TestTimePhrasesWeekdayVsWeekend(t *testing.T) {
	c := types.Context{Emotion: types.EmotionNeutral}

	weekday := FallbackSuggestions(c, monday)
	weekend := FallbackSuggestions(c, saturday)

	if !containsPhrase(weekday, "I would like to have lunch now") {
		t.Errorf("weekday lunch phrase missing: %v", weekday)
	}
	if !containsPhrase(weekend, "Could we have lunch together today?") {
		t.Errorf("weekend lunch phrase missing: %v", weekend)
	}
}

func TestTimeBucketDerivedFromClockWhenAbsent(t *testing.T) {
	night := time.Date(2025, 3, 3, 23, 30, 0, 0, time.UTC)
	got := FallbackSuggestions(types.Context{}, night)

	if !containsPhrase(got, "I am getting ready to sleep") {
		t.Errorf("late-night clock did not produce the night phrase: %v", got)
	}
}

func TestFormalToneRewrites(t *testing.T) {
	c := types.Context{
		Emotion:      types.EmotionAngry,
		ToneModifier: types.ToneFormal,
	}

	got := FallbackSuggestions(c, monday)
	assertValidSuggestionList(t, got)

	if containsPhrase(got, "I need a moment to calm down") {
		t.Errorf("formal tone left phrase unrewritten: %v", got)
	}
	if !containsPhrase(got, "I would appreciate assistance with a moment to calm down") {
		t.Errorf("formal rewrite missing: %v", got)
	}
}

func TestCasualToneRewrites(t *testing.T) {
	c := types.Context{
		Emotion:       types.EmotionNeutral,
		LocationLabel: "kitchen",
		ToneModifier:  types.ToneCasual,
	}

	got := FallbackSuggestions(c, monday)
	assertValidSuggestionList(t, got)

	if !containsPhrase(got, "I want something to eat") {
		t.Errorf("casual rewrite missing: %v", got)
	}
}

func TestFinalizeDeduplicatesFirstOccurrenceWins(t *testing.T) {
	candidates := []types.Suggestion{
		{Phrase: "Please stay close to me now", Priority: types.PriorityHigh, Category: types.CategoryComfort},
		{Phrase: "Please stay close to me now", Priority: types.PriorityLow, Category: types.CategoryNeeds},
		{Phrase: "I am feeling scared right now", Priority: types.PriorityHigh, Category: types.CategoryEmotionalExpression},
	}

	got := Finalize(candidates)
	assertValidSuggestionList(t, got)

	count := 0
	for _, s := range got {
		if s.Phrase == "Please stay close to me now" {
			count++
			if s.Priority != types.PriorityHigh {
				t.Errorf("dedupe kept the later occurrence: priority %q", s.Priority)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one occurrence after dedupe, got %d", count)
	}
}

func TestFinalizeOrdersHighMediumLowStable(t *testing.T) {
	candidates := []types.Suggestion{
		{Phrase: "first low priority phrase here", Priority: types.PriorityLow, Category: types.CategoryNeeds},
		{Phrase: "first high priority phrase here", Priority: types.PriorityHigh, Category: types.CategoryNeeds},
		{Phrase: "second high priority phrase here", Priority: types.PriorityHigh, Category: types.CategoryNeeds},
		{Phrase: "first medium priority phrase here", Priority: types.PriorityMedium, Category: types.CategoryNeeds},
	}

	got := Finalize(candidates)

	want := []string{
		"first high priority phrase here",
		"second high priority phrase here",
		"first medium priority phrase here",
		"first low priority phrase here",
	}
	for i, phrase := range want {
		if got[i].Phrase != phrase {
			t.Errorf("position %d: got %q, want %q", i, got[i].Phrase, phrase)
		}
	}
}

func TestFinalizePadsShortLists(t *testing.T) {
	got := Finalize([]types.Suggestion{
		{Phrase: "I am doing okay right now", Priority: types.PriorityMedium, Category: types.CategoryEmotionalExpression},
	})
	assertValidSuggestionList(t, got)
}

func TestFinalizeTruncatesLongLists(t *testing.T) {
	var candidates []types.Suggestion
	for _, e := range types.ValidEmotions {
		candidates = append(candidates, emotionPhrases[e]...)
	}

	got := Finalize(candidates)
	if len(got) != SuggestionCount {
		t.Errorf("expected %d suggestions, got %d", SuggestionCount, len(got))
	}
}

func containsPhrase(list []types.Suggestion, phrase string) bool {
	for _, s := range list {
		if s.Phrase == phrase {
			return true
		}
	}
	return false
}
