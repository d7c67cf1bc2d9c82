package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// pcmBlockSize is the fixed processing-buffer size: samples are committed
// to the session in whole 4096-sample blocks.
const pcmBlockSize = 4096

// PCMStrategy captures raw float32 samples and hand-builds the WAV
// container on stop. It is the only strategy doing manual signal work and
// is never auto-selected; it exists as an explicit fallback.
type PCMStrategy struct {
	mic        Microphone
	sampleRate int
	logger     *slog.Logger

	mu      sync.Mutex
	sink    domain.CaptureSink
	active  bool
	carry   []float32
	blocks  [][]float32
	monitor *LevelMonitor
}

func NewPCMStrategy(mic Microphone, sampleRate int, logger *slog.Logger) *PCMStrategy {
	return &PCMStrategy{
		mic:        mic,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

func (s *PCMStrategy) ID() domain.StrategyID {
	return domain.StrategyRawPCM
}

func (s *PCMStrategy) Start(_ context.Context, sink domain.CaptureSink) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return fmt.Errorf("pcm strategy: session already active")
	}
	s.active = true
	s.sink = sink
	s.carry = nil
	s.blocks = nil
	s.monitor = NewLevelMonitor(sink.Level)
	monitor := s.monitor
	s.mu.Unlock()

	if err := s.mic.Start(s.sampleRate, 1, s.onData); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return ClassifyDeviceError(err)
	}

	monitor.Start()
	return nil
}

// onData accumulates device frames into whole fixed-size blocks. A tail
// shorter than one block when recording stops is discarded, matching the
// fixed-buffer processing granularity.
func (s *PCMStrategy) onData(samples []float32) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	monitor := s.monitor
	s.carry = append(s.carry, samples...)
	for len(s.carry) >= pcmBlockSize {
		block := make([]float32, pcmBlockSize)
		copy(block, s.carry[:pcmBlockSize])
		s.blocks = append(s.blocks, block)
		s.carry = s.carry[pcmBlockSize:]
	}
	s.mu.Unlock()

	monitor.Push(samples)
}

func (s *PCMStrategy) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	sink := s.sink
	monitor := s.monitor
	blocks := s.blocks
	s.blocks = nil
	s.carry = nil
	s.mu.Unlock()

	// Teardown order matters: detach the level tap, stop the device, and
	// let the microphone close its audio context asynchronously.
	monitor.Stop()
	if err := s.mic.Stop(); err != nil {
		s.logger.Warn("stopping capture device", "error", err)
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	if total == 0 {
		sink.NoInput("Tidak ada audio yang terekam")
		return
	}

	samples := make([]float32, 0, total)
	for _, b := range blocks {
		samples = append(samples, b...)
	}

	s.logger.Debug("encoding raw capture",
		"blocks", len(blocks), "samples", total, "sample_rate", s.sampleRate)

	sink.AudioReady(domain.AudioBlob{
		Data:       EncodeWAV16(samples, s.sampleRate),
		MimeType:   "audio/wav",
		SampleRate: s.sampleRate,
		Channels:   1,
	})
}
