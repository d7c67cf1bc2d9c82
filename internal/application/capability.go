package application

import (
	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// Environment is the one-time runtime probe behind strategy selection.
type Environment interface {
	// HasNativeSpeech reports whether a recognition engine that returns
	// text directly is available.
	HasNativeSpeech() bool
	// IsIOS reports whether the platform needs the dedicated WAV recorder.
	IsIOS() bool
	// HasMediaRecorder reports whether a system media recorder exists.
	HasMediaRecorder() bool
}

// DetectStrategy picks the capture strategy for this runtime. Priority:
// native speech, then the iOS recorder, then the generic media recorder as
// the unconditional fallback. raw-pcm is never auto-selected; it is only
// reachable as an explicit override.
//
// Detection runs once per recorder construction; the selection is
// immutable for the lifetime of that recorder.
func DetectStrategy(env Environment) domain.StrategyID {
	switch {
	case env.HasNativeSpeech():
		return domain.StrategyNativeSpeech
	case env.IsIOS():
		return domain.StrategyIOSOptimized
	default:
		return domain.StrategyGenericMedia
	}
}

// SystemEnvironment probes the actual process runtime.
type SystemEnvironment struct {
	// SpeechEndpoint is the streaming recognition URL; empty means no
	// native-speech capability.
	SpeechEndpoint string
	// GOOS is the runtime platform, normally runtime.GOOS.
	GOOS string
	// MediaRecorder reports whether the system recorder backend was
	// compiled in.
	MediaRecorder bool
}

func (e SystemEnvironment) HasNativeSpeech() bool {
	return e.SpeechEndpoint != ""
}

func (e SystemEnvironment) IsIOS() bool {
	return e.GOOS == "ios"
}

func (e SystemEnvironment) HasMediaRecorder() bool {
	return e.MediaRecorder
}
