package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/speech"
)

const (
	// maxNoSpeechRetries bounds in-place restarts after recoverable
	// no-speech timeouts. The attempt after the ceiling is terminal.
	maxNoSpeechRetries = 20

	// restartDelay spaces engine restarts so a flapping engine does not
	// spin the session.
	restartDelay = 100 * time.Millisecond
)

// SpeechEngine is the recognition engine contract consumed by
// SpeechStrategy. speech.StreamEngine is the production implementation.
type SpeechEngine interface {
	Start(cfg speech.Config, h speech.Handler) error
	Stop()
	Abort()
}

// SpeechStrategy captures via a recognition engine that returns text
// directly. There is no raw-audio handling and therefore no level meter on
// this path.
//
// Continuous mode is enabled only on iOS, where non-continuous sessions
// truncate results; elsewhere it stays off because continuous mode
// duplicates captures. On non-continuous sessions the first final result
// flips keepListening off so the engine is not restarted.
type SpeechStrategy struct {
	engine     SpeechEngine
	language   string
	continuous bool
	logger     *slog.Logger

	mu            sync.Mutex
	sink          domain.CaptureSink
	active        bool
	keepListening bool
	retries       int
	committed     string
	finalText     string
	sawFinal      bool
	restarting    bool
}

func NewSpeechStrategy(engine SpeechEngine, language string, continuous bool, logger *slog.Logger) *SpeechStrategy {
	return &SpeechStrategy{
		engine:     engine,
		language:   language,
		continuous: continuous,
		logger:     logger,
	}
}

func (s *SpeechStrategy) ID() domain.StrategyID {
	return domain.StrategyNativeSpeech
}

// Start begins a listening session. The retry counter and transcript
// buffer reset on every successful start.
func (s *SpeechStrategy) Start(_ context.Context, sink domain.CaptureSink) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return fmt.Errorf("speech strategy: session already active")
	}
	s.active = true
	s.keepListening = true
	s.retries = 0
	s.committed = ""
	s.finalText = ""
	s.sawFinal = false
	s.restarting = false
	s.sink = sink
	s.mu.Unlock()

	if err := s.engine.Start(s.engineConfig(), s.handler()); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return classifyEngineError(err)
	}
	return nil
}

// Stop ends the session; the accumulated transcript is delivered through
// the sink once the engine reports its end event.
func (s *SpeechStrategy) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.keepListening = false
	s.mu.Unlock()

	s.engine.Stop()
}

func (s *SpeechStrategy) engineConfig() speech.Config {
	return speech.Config{
		Language:       s.language,
		Continuous:     s.continuous,
		InterimResults: true,
	}
}

func (s *SpeechStrategy) handler() speech.Handler {
	return speech.Handler{
		OnResult: s.onResult,
		OnError:  s.onError,
		OnEnd:    s.onEnd,
	}
}

func (s *SpeechStrategy) onResult(results []speech.Result) {
	var all, finals strings.Builder
	for _, r := range results {
		all.WriteString(r.Text)
		if r.Final {
			finals.WriteString(r.Text)
		}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.finalText = finals.String()

	stopEngine := false
	if finals.Len() > 0 && !s.continuous && !s.sawFinal {
		// First final on a non-continuous session: stop asking the engine
		// to keep going, otherwise the capture duplicates.
		s.sawFinal = true
		s.keepListening = false
		s.retries = 0
		stopEngine = true
	}
	sink := s.sink
	committed := s.committed
	s.mu.Unlock()

	sink.Preview(committed + all.String())
	if stopEngine {
		s.engine.Stop()
	}
}

func (s *SpeechStrategy) onError(err error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	if errors.Is(err, speech.ErrNoSpeech) && s.keepListening {
		s.retries++
		if s.retries <= maxNoSpeechRetries {
			s.restarting = true
			s.mu.Unlock()
			s.logger.Debug("no speech detected, restarting engine",
				"attempt", s.retries, "max", maxNoSpeechRetries)
			time.AfterFunc(restartDelay, s.restart)
			return
		}
		// Ceiling exceeded: give up for good.
		s.keepListening = false
		s.active = false
		sink := s.sink
		s.mu.Unlock()
		sink.Fail(domain.NewCaptureError(domain.ErrSpeechTimeout, err))
		return
	}

	s.keepListening = false
	s.active = false
	sink := s.sink
	s.mu.Unlock()
	sink.Fail(classifyEngineError(err))
}

func (s *SpeechStrategy) onEnd() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if s.restarting {
		// Engine end caused by a pending no-speech restart; the restart
		// timer re-starts the engine without resetting the transcript.
		s.mu.Unlock()
		return
	}
	if s.keepListening {
		// Continuous (iOS) sessions need the engine loop kept running
		// until an explicit stop.
		s.restarting = true
		s.mu.Unlock()
		time.AfterFunc(restartDelay, s.restart)
		return
	}

	s.active = false
	text := s.committed + s.finalText
	sink := s.sink
	s.mu.Unlock()

	if text != "" {
		sink.TextReady(text)
	} else {
		sink.NoInput("Tidak ada ucapan terdeteksi")
	}
}

func (s *SpeechStrategy) restart() {
	s.mu.Lock()
	if !s.active {
		s.restarting = false
		s.mu.Unlock()
		return
	}
	if !s.keepListening {
		// Stopped while the restart was pending. The engine end event was
		// swallowed by the restarting flag, so the session finalizes here
		// instead of restarting.
		s.restarting = false
		s.active = false
		text := s.committed + s.finalText
		sink := s.sink
		s.mu.Unlock()

		if text != "" {
			sink.TextReady(text)
		} else {
			sink.NoInput("Tidak ada ucapan terdeteksi")
		}
		return
	}
	s.restarting = false
	// Finals from the run that just ended survive the engine restart; the
	// next result event only carries the new run's finals.
	s.committed += s.finalText
	s.finalText = ""
	s.mu.Unlock()

	if err := s.engine.Start(s.engineConfig(), s.handler()); err != nil {
		s.mu.Lock()
		s.active = false
		sink := s.sink
		s.mu.Unlock()
		sink.Fail(classifyEngineError(err))
	}
}

// classifyEngineError maps engine failures onto the user-facing taxonomy:
// permission denied, network, audio capture, or unknown.
func classifyEngineError(err error) *domain.CaptureError {
	switch {
	case errors.Is(err, speech.ErrPermission):
		return domain.NewCaptureError(domain.ErrPermissionDenied, err)
	case errors.Is(err, speech.ErrNetwork):
		return domain.NewCaptureError(domain.ErrNetworkFailure, err)
	case errors.Is(err, speech.ErrAudioCapture):
		return domain.NewCaptureError(domain.ErrDeviceNotFound, err)
	case errors.Is(err, speech.ErrNoSpeech):
		return domain.NewCaptureError(domain.ErrSpeechTimeout, err)
	}
	return domain.NewCaptureError(domain.ErrUnknownRecorder, err)
}
