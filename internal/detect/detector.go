// Package detect contains the signal detectors that observe the user's
// surroundings: facial emotion, known-person presence, and location plus
// time of day. Each detector samples on its own cadence, owns its latest
// reading, and pushes new readings to a callback. Detectors degrade
// independently: a denied camera or an offline geocoder disables that one
// detector without affecting the others.
package detect

import (
	"context"
	"errors"

	"github.com/echovoice/echovoice/pkg/types"
)

// Sentinel errors reported by capture and classification sources.
var (
	// ErrPermissionDenied means the user or platform denied access to the
	// underlying resource. The detector shuts down rather than retrying.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrResourceUnavailable means the resource is temporarily absent, for
	// example no camera frame yet. The detector keeps sampling.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// Status describes a detector's lifecycle state.
type Status string

const (
	StatusStopped     Status = "stopped"
	StatusRunning     Status = "running"
	StatusUnavailable Status = "unavailable"
)

// Detector is the common lifecycle surface of all signal detectors.
// Start is non-blocking: it launches the sampling loop and returns.
type Detector interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Status() Status
}

// ReadingFunc receives each new reading from a detector. A nil signal means
// the detector's previous reading is no longer valid (for example the known
// person left the frame). Callbacks run on the detector's sampling goroutine
// and must not block.
type ReadingFunc func(*types.Signal)

// CaptureSource produces camera frames for the vision-based detectors.
type CaptureSource interface {
	// Capture returns the latest frame as encoded image bytes.
	Capture(ctx context.Context) ([]byte, error)
}

// EmotionClassifier assigns an emotion label to a face in a frame.
type EmotionClassifier interface {
	// Classify returns one of the seven emotion labels and a confidence in
	// [0, 1]. ErrResourceUnavailable means no face was found in the frame.
	Classify(ctx context.Context, frame []byte) (label string, confidence float64, err error)
}

// FaceMatcher matches a face in a frame against the known-person roster.
type FaceMatcher interface {
	// Match returns the best-matching person's name and a match score in
	// [0, 1]. ErrResourceUnavailable means no face was found in the frame.
	Match(ctx context.Context, frame []byte) (name string, score float64, err error)
}

// Geolocator reports the device's current coordinates.
type Geolocator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

// ReverseGeocoder turns coordinates into a human-readable place label.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
