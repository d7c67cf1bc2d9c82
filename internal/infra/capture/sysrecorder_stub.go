//go:build !portaudio
// +build !portaudio

package capture

import (
	"fmt"
	"log/slog"
	"time"
)

// HaveSystemRecorder reports whether the portaudio backend was compiled in.
const HaveSystemRecorder = false

// SystemMediaRecorder stub when portaudio is not available.
type SystemMediaRecorder struct {
	logger *slog.Logger
}

func NewSystemMediaRecorder(sampleRate int, logger *slog.Logger) *SystemMediaRecorder {
	return &SystemMediaRecorder{logger: logger}
}

func (r *SystemMediaRecorder) IsTypeSupported(_ string) bool {
	return false
}

func (r *SystemMediaRecorder) MimeType() string {
	return ""
}

func (r *SystemMediaRecorder) Start(_ time.Duration, _ func(chunk []byte)) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio", ErrDeviceUnsupported)
}

func (r *SystemMediaRecorder) Stop() error {
	return nil
}
