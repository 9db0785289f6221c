package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// fakeGenerator is a scripted TextGenerator for engine tests.
type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) GetModel() string { return "fake-model" }

const goodResponse = `[
	{"phrase":"I am feeling happy right now","priority":"high","category":"emotional_expression"},
	{"phrase":"I would like something to drink","priority":"high","category":"practical_need"},
	{"phrase":"Could we chat for a little while?","priority":"medium","category":"social_connection"},
	{"phrase":"I would like to wash my hands","priority":"low","category":"personal_care"}
]`

func newTestEngine(gen *fakeGenerator) *Engine {
	var e *Engine
	if gen != nil {
		e = NewEngine(gen)
	} else {
		e = NewEngine(nil)
	}
	e.now = func() time.Time { return monday }
	return e
}

func TestEngineUsesGenerativePath(t *testing.T) {
	gen := &fakeGenerator{response: goodResponse}
	e := newTestEngine(gen)

	got, source := e.Suggest(context.Background(), types.Context{Emotion: types.EmotionHappy})

	if source != SourceGenerative {
		t.Fatalf("expected generative source, got %q", source)
	}
	assertValidSuggestionList(t, got)
	if gen.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", gen.calls)
	}
}

func TestEngineFallsBackOnBackendError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	e := newTestEngine(gen)

	got, source := e.Suggest(context.Background(), types.Context{Emotion: types.EmotionSad})

	if source != SourceFallback {
		t.Fatalf("expected fallback source, got %q", source)
	}
	assertValidSuggestionList(t, got)
}

func TestEngineFallsBackOnUnparseableReply(t *testing.T) {
	gen := &fakeGenerator{response: "I am sorry, I cannot help with that."}
	e := newTestEngine(gen)

	got, source := e.Suggest(context.Background(), types.Context{Emotion: types.EmotionSad})

	if source != SourceFallback {
		t.Fatalf("expected fallback source, got %q", source)
	}
	assertValidSuggestionList(t, got)
}

func TestEngineFallsBackWhenBackendUnderDelivers(t *testing.T) {
	gen := &fakeGenerator{response: `[
		{"phrase":"I am feeling happy right now","priority":"high","category":"emotional_expression"},
		{"phrase":"I would like something to drink","priority":"high","category":"practical_need"}
	]`}
	e := newTestEngine(gen)

	got, source := e.Suggest(context.Background(), types.Context{Emotion: types.EmotionHappy})

	if source != SourceFallback {
		t.Fatalf("expected fallback source when backend returns too few, got %q", source)
	}
	assertValidSuggestionList(t, got)
}

func TestEngineSkipsBackendForEmptyContext(t *testing.T) {
	gen := &fakeGenerator{response: goodResponse}
	e := newTestEngine(gen)

	got, source := e.Suggest(context.Background(), types.Context{})

	if source != SourceFallback {
		t.Fatalf("expected fallback source for empty context, got %q", source)
	}
	if gen.calls != 0 {
		t.Errorf("backend should not be called for an empty context, got %d calls", gen.calls)
	}
	assertValidSuggestionList(t, got)
}

func TestEngineWithoutGenerator(t *testing.T) {
	e := newTestEngine(nil)

	got, source := e.Suggest(context.Background(), types.Context{Emotion: types.EmotionHappy})

	if source != SourceFallback {
		t.Fatalf("expected fallback source with nil generator, got %q", source)
	}
	assertValidSuggestionList(t, got)
}

func TestEngineCircuitOpensAfterRepeatedFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	e := newTestEngine(gen)

	for i := 0; i < 5; i++ {
		e.Suggest(context.Background(), types.Context{Emotion: types.EmotionSad})
	}

	if state := e.BreakerState(); state != "open" {
		t.Errorf("expected open circuit after repeated failures, got %q", state)
	}
	// Once open, calls fall back without touching the backend.
	callsBefore := gen.calls
	e.Suggest(context.Background(), types.Context{Emotion: types.EmotionSad})
	if gen.calls != callsBefore {
		t.Errorf("open circuit still reached the backend: %d -> %d calls", callsBefore, gen.calls)
	}
}
