package detect

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// EmotionDetector samples camera frames on a fixed interval and classifies
// the dominant facial emotion. Frames with no detectable face clear the
// current reading rather than holding a stale emotion.
type EmotionDetector struct {
	source     CaptureSource
	classifier EmotionClassifier
	interval   time.Duration

	mu        sync.RWMutex
	status    Status
	signal    *types.Signal
	onReading ReadingFunc
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEmotionDetector creates an emotion detector sampling at the given
// interval.
func NewEmotionDetector(source CaptureSource, classifier EmotionClassifier, interval time.Duration) *EmotionDetector {
	return &EmotionDetector{
		source:     source,
		classifier: classifier,
		interval:   interval,
		status:     StatusStopped,
	}
}

func (d *EmotionDetector) Name() string { return "emotion" }

// SetOnReading registers the callback invoked on each new reading.
// Must be called before Start.
func (d *EmotionDetector) SetOnReading(fn ReadingFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReading = fn
}

// CurrentSignal returns the latest reading, or nil when no face is visible
// or the detector is not running.
func (d *EmotionDetector) CurrentSignal() *types.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.signal
}

func (d *EmotionDetector) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Start launches the sampling loop. It returns an error if the detector is
// already running.
func (d *EmotionDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == StatusRunning {
		return errors.New("emotion detector already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.status = StatusRunning

	go d.run(loopCtx)
	return nil
}

// Stop halts the sampling loop and waits for it to exit.
func (d *EmotionDetector) Stop() {
	d.mu.Lock()
	if d.cancel == nil {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	<-done

	d.mu.Lock()
	if d.status == StatusRunning {
		d.status = StatusStopped
	}
	d.signal = nil
	d.mu.Unlock()
}

func (d *EmotionDetector) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Sample immediately so the first reading does not wait a full interval.
	if !d.sample(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.sample(ctx) {
				return
			}
		}
	}
}

// sample takes one reading. It returns false when the detector must stop,
// which happens only on permission denial.
func (d *EmotionDetector) sample(ctx context.Context) bool {
	frame, err := d.source.Capture(ctx)
	if err != nil {
		return d.handleSourceError(err)
	}

	label, confidence, err := d.classifier.Classify(ctx, frame)
	if err != nil {
		return d.handleSourceError(err)
	}

	if !types.IsValidEmotion(label) {
		log.Printf("WARNING: emotion classifier returned unknown label %q, ignoring", label)
		return true
	}

	d.publish(&types.Signal{
		Kind:       types.SignalEmotion,
		Value:      label,
		Confidence: confidence,
		ObservedAt: time.Now(),
	})
	return true
}

func (d *EmotionDetector) handleSourceError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		log.Printf("WARNING: emotion detector disabled: %v", err)
		d.mu.Lock()
		d.status = StatusUnavailable
		d.mu.Unlock()
		d.publish(nil)
		return false
	}
	// Transient: no frame or no face. Clear any previous reading and retry
	// on the next tick.
	d.publish(nil)
	return true
}

// publish stores the reading and invokes the callback when it represents a
// change from the previous state.
func (d *EmotionDetector) publish(signal *types.Signal) {
	d.mu.Lock()
	previous := d.signal
	d.signal = signal
	fn := d.onReading
	d.mu.Unlock()

	if fn == nil {
		return
	}
	if signal == nil && previous == nil {
		return
	}
	fn(signal)
}
