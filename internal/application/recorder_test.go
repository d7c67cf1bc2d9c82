package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

type fakeStrategy struct {
	id       domain.StrategyID
	startErr error

	mu     sync.Mutex
	sink   domain.CaptureSink
	starts int
	stops  int
}

func (s *fakeStrategy) ID() domain.StrategyID { return s.id }

func (s *fakeStrategy) Start(_ context.Context, sink domain.CaptureSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	s.sink = sink
	return nil
}

func (s *fakeStrategy) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeStrategy) currentSink() domain.CaptureSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *fakeStrategy) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *fakeStrategy) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeTranscriber struct {
	text string
	err  error

	mu    sync.Mutex
	calls int
	blobs []domain.AudioBlob
}

func (f *fakeTranscriber) Transcribe(_ context.Context, blob domain.AudioBlob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.blobs = append(f.blobs, blob)
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// manualScheduler replaces the recorder's timer factory so tests control
// when deadlines fire.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d         time.Duration
	f         func()
	cancelled bool
	fired     bool
}

func (m *manualScheduler) schedule(d time.Duration, f func()) func() {
	t := &manualTimer{d: d, f: f}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// fire runs the oldest live timer scheduled with duration d.
func (m *manualScheduler) fire(t *testing.T, d time.Duration) {
	t.Helper()
	m.mu.Lock()
	var target *manualTimer
	for _, tm := range m.timers {
		if tm.d == d && !tm.cancelled && !tm.fired {
			target = tm
			break
		}
	}
	if target != nil {
		target.fired = true
	}
	m.mu.Unlock()

	if target == nil {
		t.Fatalf("no pending timer with duration %v", d)
	}
	target.f()
}

func (m *manualScheduler) pending(d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tm := range m.timers {
		if tm.d == d && !tm.cancelled && !tm.fired {
			return true
		}
	}
	return false
}

type callbackLog struct {
	mu          sync.Mutex
	updates     []domain.StatusUpdate
	transcripts []string
	errors      []string
	levels      []float64
}

func (l *callbackLog) callbacks() Callbacks {
	return Callbacks{
		OnTranscript: func(text string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.transcripts = append(l.transcripts, text)
		},
		OnError: func(message string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.errors = append(l.errors, message)
		},
		OnStatusChange: func(update domain.StatusUpdate) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.updates = append(l.updates, update)
		},
		OnLevel: func(v float64) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.levels = append(l.levels, v)
		},
	}
}

func (l *callbackLog) statuses() []domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Status, len(l.updates))
	for i, u := range l.updates {
		out[i] = u.Status
	}
	return out
}

func newTestRecorder(strategy Strategy, stt Transcriber, log *callbackLog) (*Recorder, *manualScheduler) {
	sched := &manualScheduler{}
	r := NewRecorder(strategy, stt, log.callbacks(),
		slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	r.schedule = sched.schedule
	return r, sched
}

func waitState(t *testing.T, r *Recorder, want domain.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", r.State(), want)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// waitUntil polls for an asynchronously delivered callback effect.
func waitUntil(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRecorderSuccessFlow(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	stt := &fakeTranscriber{text: "Beli kopi 25 ribu"}
	log := &callbackLog{}
	r, sched := newTestRecorder(strategy, stt, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	if !sched.pending(10 * time.Second) {
		t.Fatal("safety auto-stop was not armed")
	}

	strategy.currentSink().AudioReady(domain.AudioBlob{
		Data: []byte("wavbytes"), MimeType: "audio/wav",
	})
	waitState(t, r, domain.StatusSuccess)

	waitUntil(t, "transcript was not delivered", func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		return len(log.transcripts) == 1 && log.transcripts[0] == "Beli kopi 25 ribu"
	})
	if sched.pending(10 * time.Second) {
		t.Error("safety timer should be cancelled once audio is in")
	}

	sched.fire(t, 2*time.Second) // display reset
	waitState(t, r, domain.StatusIdle)

	want := []domain.Status{
		domain.StatusAcquiring, domain.StatusRecording,
		domain.StatusProcessing, domain.StatusSuccess, domain.StatusIdle,
	}
	waitUntil(t, "status sequence incomplete", func() bool {
		return len(log.statuses()) == len(want)
	})
	got := log.statuses()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status sequence = %v, want %v", got, want)
		}
	}
}

func TestRecorderIgnoresStartWhileActive(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	for i := 0; i < 5; i++ {
		r.Start(context.Background())
	}
	if strategy.startCount() != 1 {
		t.Errorf("strategy started %d times, want 1", strategy.startCount())
	}
}

func TestRecorderListeningStateForNativeSpeech(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyNativeSpeech}
	log := &callbackLog{}
	r, sched := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusListening)

	strategy.currentSink().TextReady("Bayar parkir 5 ribu")
	waitState(t, r, domain.StatusProcessing)

	// Direct-text results hold the processing indicator briefly so the UX
	// matches the upload strategies.
	sched.fire(t, 700*time.Millisecond)
	waitState(t, r, domain.StatusSuccess)

	waitUntil(t, "transcript was not delivered", func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		return len(log.transcripts) == 1 && log.transcripts[0] == "Bayar parkir 5 ribu"
	})
}

func TestRecorderSafetyAutoStop(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	log := &callbackLog{}
	r, sched := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	sched.fire(t, 10*time.Second)

	if strategy.stopCount() != 1 {
		t.Fatalf("strategy stopped %d times, want 1", strategy.stopCount())
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	var sawNotice bool
	for _, u := range log.updates {
		if strings.Contains(u.Text, "dihentikan otomatis (batas 10 detik)") {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Error("auto-stop notice was not surfaced")
	}
}

func TestRecorderSafetyAutoStopNoticeUsesConfiguredLimit(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	log := &callbackLog{}
	sched := &manualScheduler{}
	r := NewRecorder(strategy, &fakeTranscriber{}, log.callbacks(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{SafetyStop: 3 * time.Second})
	r.schedule = sched.schedule

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	sched.fire(t, 3*time.Second)

	log.mu.Lock()
	defer log.mu.Unlock()
	var sawNotice bool
	for _, u := range log.updates {
		if strings.Contains(u.Text, "batas 3 detik") {
			sawNotice = true
		}
	}
	if !sawNotice {
		t.Error("auto-stop notice did not reflect the configured limit")
	}
}

func TestRecorderTranscriptionFailure(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	stt := &fakeTranscriber{err: domain.NewCaptureError(domain.ErrNetworkFailure, errors.New("boom"))}
	log := &callbackLog{}
	r, sched := newTestRecorder(strategy, stt, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)
	strategy.currentSink().AudioReady(domain.AudioBlob{Data: []byte("x"), MimeType: "audio/wav"})
	waitState(t, r, domain.StatusError)

	waitUntil(t, "network failure message was not delivered", func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		return len(log.errors) == 1 && log.errors[0] == domain.ErrNetworkFailure.UserMessage()
	})
	waitUntil(t, "error status text should carry the Gagal prefix", func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		for _, u := range log.updates {
			if u.Status == domain.StatusError && strings.HasPrefix(u.Text, "Gagal: ") {
				return true
			}
		}
		return false
	})

	sched.fire(t, 2*time.Second)
	waitState(t, r, domain.StatusIdle)
}

func TestRecorderAcquisitionFailure(t *testing.T) {
	strategy := &fakeStrategy{
		id:       domain.StrategyGenericMedia,
		startErr: domain.NewCaptureError(domain.ErrPermissionDenied, errors.New("denied")),
	}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusError)

	waitUntil(t, "permission message was not delivered", func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		return len(log.errors) == 1 && log.errors[0] == domain.ErrPermissionDenied.UserMessage()
	})
}

func TestRecorderNoInputGoesStraightToIdle(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)
	strategy.currentSink().NoInput("Tidak ada audio yang terekam")
	waitState(t, r, domain.StatusIdle)

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, u := range log.updates {
		if u.Status == domain.StatusProcessing || u.Status == domain.StatusError {
			t.Errorf("unexpected %s transition for a no-input outcome", u.Status)
		}
	}
}

func TestRecorderStopIgnoredWhileProcessing(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	blockSTT := make(chan struct{})
	stt := &blockingTranscriber{release: blockSTT}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, stt, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)
	strategy.currentSink().AudioReady(domain.AudioBlob{Data: []byte("x"), MimeType: "audio/wav"})
	waitState(t, r, domain.StatusProcessing)

	r.Stop()
	if strategy.stopCount() != 0 {
		t.Error("Stop while processing must not reach the strategy")
	}

	close(blockSTT)
	waitState(t, r, domain.StatusSuccess)
}

type blockingTranscriber struct {
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(_ context.Context, _ domain.AudioBlob) (string, error) {
	<-b.release
	return "done", nil
}

func TestRecorderLevelGatedOnCaptureStates(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, &fakeTranscriber{text: "ok"}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	sink := strategy.currentSink()
	sink.Level(0.4)

	sink.AudioReady(domain.AudioBlob{Data: []byte("x"), MimeType: "audio/wav"})
	waitState(t, r, domain.StatusSuccess)
	sink.Level(0.9) // late tick after capture ended

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.levels) != 1 || log.levels[0] != 0.4 {
		t.Errorf("levels = %v, want only the in-capture sample", log.levels)
	}
}

func TestRecorderPreviewOnlyWhileListening(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyNativeSpeech}
	log := &callbackLog{}
	r, _ := newTestRecorder(strategy, &fakeTranscriber{}, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusListening)
	strategy.currentSink().Preview("Beli kop")

	log.mu.Lock()
	var sawPreview bool
	for _, u := range log.updates {
		if u.Text == "Terdeteksi: Beli kop" {
			sawPreview = true
		}
	}
	log.mu.Unlock()
	if !sawPreview {
		t.Fatal("preview text was not surfaced")
	}
}

func TestRecorderStaleSessionEventsDropped(t *testing.T) {
	strategy := &fakeStrategy{id: domain.StrategyRawPCM}
	stt := &fakeTranscriber{text: "first"}
	log := &callbackLog{}
	r, sched := newTestRecorder(strategy, stt, log)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)
	staleSink := strategy.currentSink()
	staleSink.AudioReady(domain.AudioBlob{Data: []byte("x"), MimeType: "audio/wav"})
	waitState(t, r, domain.StatusSuccess)
	sched.fire(t, 2*time.Second)
	waitState(t, r, domain.StatusIdle)

	r.Start(context.Background())
	waitState(t, r, domain.StatusRecording)

	// Events from the finished session must not disturb the new one.
	staleSink.AudioReady(domain.AudioBlob{Data: []byte("y"), MimeType: "audio/wav"})
	staleSink.Fail(errors.New("stale failure"))

	if r.State() != domain.StatusRecording {
		t.Errorf("state = %s, stale events should be ignored", r.State())
	}
	if stt.callCount() != 1 {
		t.Errorf("transcriber called %d times, want 1", stt.callCount())
	}
}
