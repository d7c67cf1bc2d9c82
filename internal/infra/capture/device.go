package capture

import (
	"errors"
	"strings"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// Microphone is the narrow device contract for raw-sample capture.
// Implementations deliver float32 frames from their own capture thread;
// callers must treat onData as concurrent with Start/Stop.
type Microphone interface {
	Start(sampleRate, channels int, onData func(samples []float32)) error
	// Stop releases the device and the underlying audio context. Every
	// exit path from a recording session must reach Stop exactly once.
	Stop() error
}

// MediaRecorder is the contract for system recorders that produce encoded
// audio. Chunks are emitted incrementally at the configured timeslice.
type MediaRecorder interface {
	// IsTypeSupported probes whether the recorder can produce mimeType.
	IsTypeSupported(mimeType string) bool
	// Start acquires the device and begins emitting chunks every timeslice.
	// The recorder picks its own output format; forcing the negotiated
	// type is unreliable on several backends.
	Start(timeslice time.Duration, onChunk func(chunk []byte)) error
	// MimeType reports the actual output type. Valid after Start.
	MimeType() string
	// Stop flushes the final chunk and releases the device.
	Stop() error
}

// LevelTap is implemented by recorders that can expose their raw sample
// stream for level metering alongside the encoded output.
type LevelTap interface {
	TapLevel(onSamples func(samples []float32))
}

// Sentinel device errors surfaced by the concrete backends. Strategies map
// these onto the user-facing taxonomy with ClassifyDeviceError.
var (
	ErrDevicePermission  = errors.New("capture: microphone permission denied")
	ErrDeviceMissing     = errors.New("capture: no capture device found")
	ErrDeviceInUse       = errors.New("capture: capture device busy")
	ErrDeviceUnsupported = errors.New("capture: capture not supported on this runtime")
)

// ClassifyDeviceError maps a device-open failure onto the error taxonomy.
func ClassifyDeviceError(err error) *domain.CaptureError {
	switch {
	case errors.Is(err, ErrDevicePermission):
		return domain.NewCaptureError(domain.ErrPermissionDenied, err)
	case errors.Is(err, ErrDeviceMissing):
		return domain.NewCaptureError(domain.ErrDeviceNotFound, err)
	case errors.Is(err, ErrDeviceInUse):
		return domain.NewCaptureError(domain.ErrDeviceBusy, err)
	case errors.Is(err, ErrDeviceUnsupported):
		return domain.NewCaptureError(domain.ErrUnsupported, err)
	}

	// Backend errors often carry only free text; recognize the common ones.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return domain.NewCaptureError(domain.ErrPermissionDenied, err)
	case strings.Contains(msg, "no device") || strings.Contains(msg, "not found"):
		return domain.NewCaptureError(domain.ErrDeviceNotFound, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return domain.NewCaptureError(domain.ErrDeviceBusy, err)
	}
	return domain.NewCaptureError(domain.ErrUnknownRecorder, err)
}
