// Package speech provides the streaming speech-recognition engine used by
// the native-speech capture strategy. The engine owns its own audio feed
// and returns text directly; callers never see raw audio.
package speech

import "errors"

// Config controls one recognition session.
type Config struct {
	// Language is the recognition locale, e.g. "id-ID".
	Language string
	// Continuous keeps the engine listening after a final result. Only
	// enabled on iOS, where non-continuous sessions truncate results.
	Continuous bool
	// InterimResults enables partial hypotheses for live display.
	InterimResults bool
}

// Result is one recognized segment. Interim segments may be revised until
// a final segment replaces them.
type Result struct {
	Text  string
	Final bool
}

// Handler receives engine events. OnResult always carries the full result
// list for the session so far, finals first, at most one trailing interim.
type Handler struct {
	OnResult func(results []Result)
	OnError  func(err error)
	OnEnd    func()
}

// Engine errors surfaced through Handler.OnError. ErrNoSpeech is the one
// recoverable condition; strategies retry it in place.
var (
	ErrNoSpeech     = errors.New("speech: no speech detected")
	ErrPermission   = errors.New("speech: microphone permission denied")
	ErrAudioCapture = errors.New("speech: audio capture failed")
	ErrNetwork      = errors.New("speech: recognition service unreachable")
)
