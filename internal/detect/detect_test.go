package detect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

const testInterval = 10 * time.Millisecond

// fakeSource returns scripted frames or errors, one per call, repeating the
// last entry once the script runs out.
type fakeSource struct {
	mu     sync.Mutex
	script []error
	calls  int
}

func (f *fakeSource) Capture(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.script) > 0 {
		idx := f.calls
		if idx >= len(f.script) {
			idx = len(f.script) - 1
		}
		err = f.script[idx]
	}
	f.calls++
	if err != nil {
		return nil, err
	}
	return []byte("frame"), nil
}

type fakeClassifier struct {
	mu         sync.Mutex
	label      string
	confidence float64
	err        error
}

func (f *fakeClassifier) Classify(ctx context.Context, frame []byte) (string, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.label, f.confidence, f.err
}

func (f *fakeClassifier) set(label string, confidence float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.label, f.confidence, f.err = label, confidence, err
}

type fakeMatcher struct {
	mu    sync.Mutex
	name  string
	score float64
	err   error
}

func (f *fakeMatcher) Match(ctx context.Context, frame []byte) (string, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name, f.score, f.err
}

func (f *fakeMatcher) set(name string, score float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name, f.score, f.err = name, score, err
}

type fakeGeolocator struct {
	lat, lon float64
	err      error
}

func (f *fakeGeolocator) Locate(ctx context.Context) (float64, float64, error) {
	return f.lat, f.lon, f.err
}

type fakeGeocoder struct {
	label string
	err   error
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return f.label, f.err
}

// collectReadings buffers callback signals so tests can wait for them.
func collectReadings() (ReadingFunc, chan *types.Signal) {
	ch := make(chan *types.Signal, 64)
	return func(s *types.Signal) { ch <- s }, ch
}

func waitForSignal(t *testing.T, ch chan *types.Signal, match func(*types.Signal) bool) *types.Signal {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for signal")
			return nil
		}
	}
}

func TestEmotionDetectorPublishesReadings(t *testing.T) {
	classifier := &fakeClassifier{label: types.EmotionHappy, confidence: 0.9}
	d := NewEmotionDetector(&fakeSource{}, classifier, testInterval)
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	got := waitForSignal(t, readings, func(s *types.Signal) bool { return s != nil })
	if got.Kind != types.SignalEmotion || got.Value != types.EmotionHappy {
		t.Errorf("unexpected signal: %+v", got)
	}
	if got.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", got.Confidence)
	}

	if cur := d.CurrentSignal(); cur == nil || cur.Value != types.EmotionHappy {
		t.Errorf("CurrentSignal = %+v", cur)
	}
}

func TestEmotionDetectorClearsOnMissingFace(t *testing.T) {
	classifier := &fakeClassifier{label: types.EmotionSad, confidence: 0.8}
	d := NewEmotionDetector(&fakeSource{}, classifier, testInterval)
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	waitForSignal(t, readings, func(s *types.Signal) bool { return s != nil })

	classifier.set("", 0, ErrResourceUnavailable)
	waitForSignal(t, readings, func(s *types.Signal) bool { return s == nil })

	if d.Status() != StatusRunning {
		t.Errorf("transient error should not stop the detector, status = %q", d.Status())
	}
}

func TestEmotionDetectorDisablesOnPermissionDenied(t *testing.T) {
	source := &fakeSource{script: []error{ErrPermissionDenied}}
	d := NewEmotionDetector(source, &fakeClassifier{}, testInterval)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Status() != StatusUnavailable {
		if time.Now().After(deadline) {
			t.Fatalf("detector never became unavailable, status = %q", d.Status())
		}
		time.Sleep(time.Millisecond)
	}
	if d.CurrentSignal() != nil {
		t.Error("unavailable detector should have no signal")
	}
}

func TestEmotionDetectorIgnoresUnknownLabels(t *testing.T) {
	classifier := &fakeClassifier{label: "ecstatic", confidence: 0.9}
	d := NewEmotionDetector(&fakeSource{}, classifier, testInterval)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	time.Sleep(5 * testInterval)
	if d.CurrentSignal() != nil {
		t.Errorf("unknown label should not produce a signal, got %+v", d.CurrentSignal())
	}
}

func TestEmotionDetectorDoubleStart(t *testing.T) {
	d := NewEmotionDetector(&fakeSource{}, &fakeClassifier{label: types.EmotionNeutral}, testInterval)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Error("second start should fail")
	}
}

func TestPresenceDetectorThreshold(t *testing.T) {
	matcher := &fakeMatcher{name: "Maria", score: 0.3}
	d := NewPresenceDetector(&fakeSource{}, matcher, testInterval, 0.4)
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	time.Sleep(5 * testInterval)
	if d.CurrentSignal() != nil {
		t.Errorf("below-threshold match should not produce a signal, got %+v", d.CurrentSignal())
	}

	matcher.set("Maria", 0.8, nil)
	got := waitForSignal(t, readings, func(s *types.Signal) bool { return s != nil })
	if got.Kind != types.SignalPresence || got.Value != "Maria" {
		t.Errorf("unexpected signal: %+v", got)
	}
}

func TestPresenceDetectorClearsWhenPersonLeaves(t *testing.T) {
	matcher := &fakeMatcher{name: "Sam", score: 0.9}
	d := NewPresenceDetector(&fakeSource{}, matcher, testInterval, 0.4)
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	waitForSignal(t, readings, func(s *types.Signal) bool { return s != nil })

	matcher.set("", 0, ErrResourceUnavailable)
	waitForSignal(t, readings, func(s *types.Signal) bool { return s == nil })

	if d.CurrentSignal() != nil {
		t.Error("signal should be cleared after the person leaves")
	}
}

func TestLocationTimeDetectorEmitsBucketAndLabel(t *testing.T) {
	d := NewLocationTimeDetector(&fakeGeolocator{lat: 51.5, lon: -0.12}, &fakeGeocoder{label: "Riverside Park"}, testInterval)
	d.now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	timeSig := waitForSignal(t, readings, func(s *types.Signal) bool {
		return s != nil && s.Kind == types.SignalTime
	})
	if timeSig.Value != types.TimeMorning {
		t.Errorf("time bucket = %q, want %q", timeSig.Value, types.TimeMorning)
	}

	locSig := waitForSignal(t, readings, func(s *types.Signal) bool {
		return s != nil && s.Kind == types.SignalLocation && s.Value != ""
	})
	if locSig.Value != "Riverside Park" {
		t.Errorf("location = %q, want Riverside Park", locSig.Value)
	}
}

func TestLocationTimeDetectorTimeOnlyWithoutGeocoder(t *testing.T) {
	d := NewLocationTimeDetector(nil, nil, testInterval)
	d.now = func() time.Time { return time.Date(2025, 3, 3, 22, 0, 0, 0, time.UTC) }

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for d.CurrentTimeSignal() == nil {
		if time.Now().After(deadline) {
			t.Fatal("time signal never appeared")
		}
		time.Sleep(time.Millisecond)
	}
	if got := d.CurrentTimeSignal().Value; got != types.TimeNight {
		t.Errorf("time bucket = %q, want %q", got, types.TimeNight)
	}
	if d.CurrentLocationSignal() != nil {
		t.Error("time-only detector should have no location signal")
	}
}

func TestLocationTimeDetectorRefreshLocation(t *testing.T) {
	// An interval far beyond the test's lifetime, so only the initial tick
	// and the explicit refresh ever sample.
	d := NewLocationTimeDetector(&fakeGeolocator{lat: 40.7, lon: -74.0}, &fakeGeocoder{label: "Mercy Hospital"}, time.Hour)
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	waitForSignal(t, readings, func(s *types.Signal) bool {
		return s != nil && s.Kind == types.SignalLocation && s.Value == "Mercy Hospital"
	})

	// A refresh with an unchanged label publishes nothing; one with a new
	// label publishes immediately.
	d.RefreshLocation(context.Background())
	select {
	case s := <-readings:
		t.Errorf("unchanged location should not be re-published, got %+v", s)
	default:
	}

	d.geocoder.(*fakeGeocoder).label = "Riverside Park"
	d.RefreshLocation(context.Background())
	got := waitForSignal(t, readings, func(s *types.Signal) bool {
		return s != nil && s.Kind == types.SignalLocation
	})
	if got.Value != "Riverside Park" {
		t.Errorf("location = %q, want Riverside Park", got.Value)
	}
}

func TestLocationTimeDetectorConcurrentRefresh(t *testing.T) {
	// Denied positioning makes every sample take the disable path, which
	// clears the capability fields while refreshes and ticks race.
	d := NewLocationTimeDetector(&fakeGeolocator{err: ErrPermissionDenied}, &fakeGeocoder{label: "Mercy Hospital"}, testInterval)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				d.RefreshLocation(context.Background())
			}
		}()
	}
	wg.Wait()

	if d.CurrentLocationSignal() != nil {
		t.Error("denied positioning should leave no location signal")
	}
	if d.Status() != StatusRunning {
		t.Errorf("time signal must keep running, status = %q", d.Status())
	}
}

func TestLocationTimeDetectorTimeBucketDoesNotRepeat(t *testing.T) {
	d := NewLocationTimeDetector(nil, nil, testInterval)
	d.now = func() time.Time { return time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC) }
	fn, readings := collectReadings()
	d.SetOnReading(fn)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer d.Stop()

	waitForSignal(t, readings, func(s *types.Signal) bool {
		return s != nil && s.Kind == types.SignalTime
	})

	// Let several ticks pass; the unchanged bucket must not be re-published.
	time.Sleep(5 * testInterval)
	select {
	case s := <-readings:
		t.Errorf("unexpected extra reading: %+v", s)
	default:
	}
}
