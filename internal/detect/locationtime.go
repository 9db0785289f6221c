package detect

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/echovoice/echovoice/pkg/types"
)

// LocationTimeDetector ticks on a clock interval and emits two signal kinds:
// the current time-of-day bucket, and a reverse-geocoded place label when a
// geolocator and geocoder are configured. The time signal is always
// available; the location signal degrades independently when positioning or
// geocoding fails.
//
// Because one callback carries both kinds, a cleared location is published as
// a location signal with an empty value rather than nil.
type LocationTimeDetector struct {
	geolocator Geolocator
	geocoder   ReverseGeocoder
	interval   time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	status    Status
	timeSig   *types.Signal
	locSig    *types.Signal
	onReading ReadingFunc
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewLocationTimeDetector creates a location-time detector. geolocator and
// geocoder may both be nil for a time-only detector.
func NewLocationTimeDetector(geolocator Geolocator, geocoder ReverseGeocoder, interval time.Duration) *LocationTimeDetector {
	return &LocationTimeDetector{
		geolocator: geolocator,
		geocoder:   geocoder,
		interval:   interval,
		now:        time.Now,
		status:     StatusStopped,
	}
}

func (d *LocationTimeDetector) Name() string { return "location-time" }

// SetOnReading registers the callback invoked on each new reading.
// Must be called before Start.
func (d *LocationTimeDetector) SetOnReading(fn ReadingFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReading = fn
}

// CurrentTimeSignal returns the latest time-of-day reading.
func (d *LocationTimeDetector) CurrentTimeSignal() *types.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timeSig
}

// CurrentLocationSignal returns the latest location reading, or nil when the
// position is unknown.
func (d *LocationTimeDetector) CurrentLocationSignal() *types.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locSig
}

func (d *LocationTimeDetector) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Start launches the tick loop. It returns an error if the detector is
// already running.
func (d *LocationTimeDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == StatusRunning {
		return errors.New("location-time detector already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.status = StatusRunning

	go d.run(loopCtx)
	return nil
}

// Stop halts the tick loop and waits for it to exit.
func (d *LocationTimeDetector) Stop() {
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
	d.timeSig = nil
	d.locSig = nil
	d.mu.Unlock()
}

// RefreshLocation resolves the current position immediately instead of
// waiting for the next tick.
func (d *LocationTimeDetector) RefreshLocation(ctx context.Context) {
	d.sampleLocation(ctx, d.now())
}

func (d *LocationTimeDetector) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *LocationTimeDetector) tick(ctx context.Context) {
	now := d.now()
	bucket := types.TimeBucketForHour(now.Hour())

	d.mu.Lock()
	changed := d.timeSig == nil || d.timeSig.Value != bucket
	if changed {
		d.timeSig = &types.Signal{
			Kind:       types.SignalTime,
			Value:      bucket,
			Confidence: 1.0,
			ObservedAt: now,
		}
	}
	timeSig := d.timeSig
	fn := d.onReading
	d.mu.Unlock()

	if changed && fn != nil {
		fn(timeSig)
	}

	d.sampleLocation(ctx, now)
}

// sampleLocation runs on both the tick loop and RefreshLocation callers, so
// the capability fields are only touched under the lock.
func (d *LocationTimeDetector) sampleLocation(ctx context.Context, now time.Time) {
	d.mu.RLock()
	geolocator, geocoder := d.geolocator, d.geocoder
	d.mu.RUnlock()
	if geolocator == nil || geocoder == nil {
		return
	}

	label, err := resolveLocation(ctx, geolocator, geocoder)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, ErrPermissionDenied) {
			log.Printf("WARNING: location detection disabled: %v", err)
			d.mu.Lock()
			d.geolocator = nil
			d.geocoder = nil
			d.mu.Unlock()
		} else {
			log.Printf("WARNING: location lookup failed: %v", err)
		}
		d.publishLocation("", 0, now)
		return
	}

	d.publishLocation(label, 1.0, now)
}

func resolveLocation(ctx context.Context, geolocator Geolocator, geocoder ReverseGeocoder) (string, error) {
	lat, lon, err := geolocator.Locate(ctx)
	if err != nil {
		return "", err
	}

	label, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	return label, nil
}

func (d *LocationTimeDetector) publishLocation(label string, confidence float64, now time.Time) {
	d.mu.Lock()
	previous := ""
	if d.locSig != nil {
		previous = d.locSig.Value
	}
	if previous == label {
		d.mu.Unlock()
		return
	}

	if label == "" {
		d.locSig = nil
	} else {
		d.locSig = &types.Signal{
			Kind:       types.SignalLocation,
			Value:      label,
			Confidence: confidence,
			ObservedAt: now,
		}
	}
	fn := d.onReading
	d.mu.Unlock()

	if fn == nil {
		return
	}
	fn(&types.Signal{
		Kind:       types.SignalLocation,
		Value:      label,
		Confidence: confidence,
		ObservedAt: now,
	})
}
