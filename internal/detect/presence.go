package detect

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// PresenceDetector samples camera frames and matches faces against the
// known-person roster. Matches below the confidence threshold are treated as
// nobody present, so a half-recognized stranger never shows up as a known
// person in the context.
type PresenceDetector struct {
	source    CaptureSource
	matcher   FaceMatcher
	interval  time.Duration
	threshold float64

	mu        sync.RWMutex
	status    Status
	signal    *types.Signal
	onReading ReadingFunc
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPresenceDetector creates a presence detector. threshold is the minimum
// match score required to report a person.
func NewPresenceDetector(source CaptureSource, matcher FaceMatcher, interval time.Duration, threshold float64) *PresenceDetector {
	return &PresenceDetector{
		source:    source,
		matcher:   matcher,
		interval:  interval,
		threshold: threshold,
		status:    StatusStopped,
	}
}

func (d *PresenceDetector) Name() string { return "presence" }

// SetOnReading registers the callback invoked on each new reading.
// Must be called before Start.
func (d *PresenceDetector) SetOnReading(fn ReadingFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReading = fn
}

// CurrentSignal returns the latest reading, or nil when no known person is
// present.
func (d *PresenceDetector) CurrentSignal() *types.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.signal
}

func (d *PresenceDetector) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Start launches the sampling loop. It returns an error if the detector is
// already running.
func (d *PresenceDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == StatusRunning {
		return errors.New("presence detector already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.status = StatusRunning

	go d.run(loopCtx)
	return nil
}

// Stop halts the sampling loop and waits for it to exit.
func (d *PresenceDetector) Stop() {
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

func (d *PresenceDetector) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

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

func (d *PresenceDetector) sample(ctx context.Context) bool {
	frame, err := d.source.Capture(ctx)
	if err != nil {
		return d.handleSourceError(err)
	}

	name, score, err := d.matcher.Match(ctx, frame)
	if err != nil {
		return d.handleSourceError(err)
	}

	if name == "" || score < d.threshold {
		d.publish(nil)
		return true
	}

	d.publish(&types.Signal{
		Kind:       types.SignalPresence,
		Value:      name,
		Confidence: score,
		ObservedAt: time.Now(),
	})
	return true
}

func (d *PresenceDetector) handleSourceError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		log.Printf("WARNING: presence detector disabled: %v", err)
		d.mu.Lock()
		d.status = StatusUnavailable
		d.mu.Unlock()
		d.publish(nil)
		return false
	}
	d.publish(nil)
	return true
}

func (d *PresenceDetector) publish(signal *types.Signal) {
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
