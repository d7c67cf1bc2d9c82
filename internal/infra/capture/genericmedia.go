package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// mediaTimeslice makes the recorder emit data incrementally instead of
// only at stop; constrained backends deliver nothing otherwise.
const mediaTimeslice = time.Second

// MediaStrategy records through a system media recorder with MIME-type
// negotiation. The negotiated type is advisory: the recorder picks its own
// output format and the blob is labeled with the recorder's actual type.
type MediaStrategy struct {
	rec    MediaRecorder
	logger *slog.Logger

	mu       sync.Mutex
	sink     domain.CaptureSink
	active   bool
	stopping bool
	chunks   [][]byte
	mimeType string
	monitor  *LevelMonitor
}

func NewMediaStrategy(rec MediaRecorder, logger *slog.Logger) *MediaStrategy {
	return &MediaStrategy{rec: rec, logger: logger}
}

func (s *MediaStrategy) ID() domain.StrategyID {
	return domain.StrategyGenericMedia
}

func (s *MediaStrategy) Start(_ context.Context, sink domain.CaptureSink) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return fmt.Errorf("media strategy: session already active")
	}
	s.active = true
	s.stopping = false
	s.sink = sink
	s.chunks = nil
	s.monitor = nil
	s.mu.Unlock()

	negotiated := NegotiateMimeType(s.rec.IsTypeSupported)

	if err := s.rec.Start(mediaTimeslice, s.onChunk); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return ClassifyDeviceError(err)
	}

	actual := s.rec.MimeType()
	if actual == "" {
		actual = negotiated
	}
	s.logger.Debug("media recorder started",
		"negotiated", negotiated, "actual", actual)

	s.mu.Lock()
	s.mimeType = actual
	var monitor *LevelMonitor
	if tap, ok := s.rec.(LevelTap); ok {
		monitor = NewLevelMonitor(sink.Level)
		tap.TapLevel(monitor.Push)
		s.monitor = monitor
	}
	s.mu.Unlock()

	if monitor != nil {
		monitor.Start()
	}
	return nil
}

// onChunk buffers each emitted chunk. Zero-byte chunks happen on some
// backends between timeslices; they are logged and dropped.
func (s *MediaStrategy) onChunk(chunk []byte) {
	if len(chunk) == 0 {
		s.logger.Debug("dropping empty media chunk")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	s.chunks = append(s.chunks, buf)
}

func (s *MediaStrategy) Stop() {
	s.mu.Lock()
	if !s.active || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	monitor := s.monitor
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}

	// rec.Stop flushes the final chunk through onChunk before returning,
	// so the session must stay active across it.
	if err := s.rec.Stop(); err != nil {
		s.logger.Warn("stopping media recorder", "error", err)
	}

	s.mu.Lock()
	s.active = false
	sink := s.sink
	mimeType := s.mimeType
	chunks := s.chunks
	s.chunks = nil
	s.mu.Unlock()

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 {
		sink.NoInput("Tidak ada audio yang terekam")
		return
	}

	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}

	s.logger.Debug("assembled recording",
		"chunks", len(chunks), "bytes", total, "mime_type", mimeType)

	sink.AudioReady(domain.AudioBlob{Data: data, MimeType: mimeType})
}
