package application

import (
	"context"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// Strategy is the common contract of the four capture implementations.
// Start acquires the device and begins capturing; results and failures
// flow back through the sink. Stop ends the capture; the strategy must
// release every device handle on all exit paths before reporting through
// the sink.
type Strategy interface {
	ID() domain.StrategyID
	Start(ctx context.Context, sink domain.CaptureSink) error
	Stop()
}

// Transcriber turns a finalized audio blob into text. The native-speech
// strategy bypasses it, delivering text directly.
type Transcriber interface {
	Transcribe(ctx context.Context, blob domain.AudioBlob) (string, error)
}
