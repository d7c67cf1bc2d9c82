package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// wavSampleRate is fixed at 16 kHz mono: enough for speech, and it keeps
// upload payloads small.
const wavSampleRate = 16000

// WavStrategy records through the WAV library so the container is built
// for us, no manual header work. This is the constrained-runtime path
// (Safari/iOS-class devices) where the generic encoded recorder is
// unreliable.
type WavStrategy struct {
	mic    Microphone
	logger *slog.Logger

	mu      sync.Mutex
	sink    domain.CaptureSink
	active  bool
	samples []int
	monitor *LevelMonitor
}

func NewWavStrategy(mic Microphone, logger *slog.Logger) *WavStrategy {
	return &WavStrategy{mic: mic, logger: logger}
}

func (s *WavStrategy) ID() domain.StrategyID {
	return domain.StrategyIOSOptimized
}

func (s *WavStrategy) Start(_ context.Context, sink domain.CaptureSink) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return fmt.Errorf("wav strategy: session already active")
	}
	s.active = true
	s.sink = sink
	s.samples = s.samples[:0]
	s.monitor = NewLevelMonitor(sink.Level)
	monitor := s.monitor
	s.mu.Unlock()

	if err := s.mic.Start(wavSampleRate, 1, s.onData); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return ClassifyDeviceError(err)
	}

	monitor.Start()
	return nil
}

func (s *WavStrategy) onData(frames []float32) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	monitor := s.monitor
	for _, f := range frames {
		s.samples = append(s.samples, int(pcm16FromFloat32(f)))
	}
	s.mu.Unlock()

	monitor.Push(frames)
}

func (s *WavStrategy) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	sink := s.sink
	monitor := s.monitor
	samples := make([]int, len(s.samples))
	copy(samples, s.samples)
	s.mu.Unlock()

	monitor.Stop()
	if err := s.mic.Stop(); err != nil {
		s.logger.Warn("stopping capture device", "error", err)
	}

	if len(samples) == 0 {
		sink.NoInput("Tidak ada audio yang terekam")
		return
	}

	blob, err := encodeLibraryWAV(samples)
	if err != nil {
		sink.Fail(domain.NewCaptureError(domain.ErrUnknownRecorder, err))
		return
	}
	sink.AudioReady(blob)
}

func encodeLibraryWAV(samples []int) (domain.AudioBlob, error) {
	buf := &seekBuffer{}
	enc := wav.NewEncoder(buf, wavSampleRate, 16, 1, 1)

	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: wavSampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	})
	if err != nil {
		return domain.AudioBlob{}, fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return domain.AudioBlob{}, fmt.Errorf("finalizing wav container: %w", err)
	}

	return domain.AudioBlob{
		Data:       buf.Bytes(),
		MimeType:   "audio/wav",
		SampleRate: wavSampleRate,
		Channels:   1,
	}, nil
}
