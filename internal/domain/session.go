package domain

import (
	"time"

	"github.com/google/uuid"
)

// StrategyID identifies one of the four capture strategies.
type StrategyID string

const (
	StrategyNativeSpeech StrategyID = "native-speech"
	StrategyIOSOptimized StrategyID = "ios-optimized"
	StrategyGenericMedia StrategyID = "generic-media"
	StrategyRawPCM       StrategyID = "raw-pcm"
)

// RecordingSession tracks a single capture from start to transcript.
// At most one session is active at a time; the orchestrator enforces this.
type RecordingSession struct {
	ID         uuid.UUID
	Strategy   StrategyID
	State      Status
	StartedAt  time.Time
	MimeType   string
	SampleRate int
	Channels   int
}

// AudioBlob is finalized, encoded audio ready for upload. SampleRate and
// Channels are zero when the producing recorder does not expose them.
type AudioBlob struct {
	Data       []byte
	MimeType   string
	SampleRate int
	Channels   int
}

func (b AudioBlob) Size() int {
	return len(b.Data)
}

// CaptureSink receives strategy output. The orchestrator implements it;
// strategies call it from their device callbacks.
type CaptureSink interface {
	// AudioReady hands over the assembled blob after a stop.
	AudioReady(blob AudioBlob)
	// TextReady delivers a finished transcript directly (native-speech path).
	TextReady(text string)
	// Preview surfaces interim recognition text for live display.
	Preview(text string)
	// Level reports a normalized [0,1] input loudness sample.
	Level(v float64)
	// NoInput signals that the session ended with nothing captured.
	NoInput(msg string)
	// Fail reports a terminal session error. The strategy has already
	// released its device handles when this is called.
	Fail(err error)
}
