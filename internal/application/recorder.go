package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// Callbacks is the recorder-to-UI contract.
type Callbacks struct {
	// OnTranscript delivers the finalized transcript, exactly once per
	// successful session.
	OnTranscript func(text string)
	// OnError delivers the user-facing message of a terminal failure.
	OnError func(message string)
	// OnStatusChange reports every state transition plus live preview and
	// auto-stop notices.
	OnStatusChange func(update domain.StatusUpdate)
	// OnLevel reports normalized input loudness while capturing. Optional.
	OnLevel func(v float64)
}

// Options are the fixed session timings. Zero values take the defaults.
type Options struct {
	// SafetyStop bounds how long a microphone can stay open.
	SafetyStop time.Duration
	// ProcessingDelay keeps the native-speech status indicator consistent
	// with the upload-based strategies, which spend real time uploading.
	ProcessingDelay time.Duration
	// ResetDelay is how long Success/Error stay displayed before the
	// recorder returns to Idle.
	ResetDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SafetyStop == 0 {
		o.SafetyStop = 10 * time.Second
	}
	if o.ProcessingDelay == 0 {
		o.ProcessingDelay = 700 * time.Millisecond
	}
	if o.ResetDelay == 0 {
		o.ResetDelay = 2 * time.Second
	}
}

// Recorder owns the recording lifecycle: it drives the selected strategy,
// keeps at most one session active, applies the safety auto-stop, and
// routes results to the upload client and the UI callbacks.
type Recorder struct {
	strategy Strategy
	stt      Transcriber
	cb       Callbacks
	logger   *slog.Logger
	opts     Options

	clock    func() time.Time
	schedule func(d time.Duration, f func()) (cancel func())

	mu           sync.Mutex
	state        domain.Status
	session      *domain.RecordingSession
	ctx          context.Context
	cancelSafety func()
	cancelReset  func()
}

func NewRecorder(strategy Strategy, stt Transcriber, cb Callbacks, logger *slog.Logger, opts Options) *Recorder {
	opts.setDefaults()
	return &Recorder{
		strategy: strategy,
		stt:      stt,
		cb:       cb,
		logger:   logger,
		opts:     opts,
		state:    domain.StatusIdle,
		clock:    time.Now,
		schedule: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins a new recording session. While a session is active
// (acquiring, capturing, or processing) further calls are no-ops.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.state.Active() {
		r.logger.Debug("start ignored, session active", "state", r.state)
		r.mu.Unlock()
		return
	}
	if r.cancelReset != nil {
		r.cancelReset()
		r.cancelReset = nil
	}

	sess := &domain.RecordingSession{
		ID:        uuid.New(),
		Strategy:  r.strategy.ID(),
		State:     domain.StatusAcquiring,
		StartedAt: r.clock(),
	}
	r.session = sess
	r.ctx = ctx
	update := r.setStateLocked(domain.StatusAcquiring, "")
	sink := &sessionSink{r: r, id: sess.ID}
	r.mu.Unlock()

	r.emitStatus(update)
	r.logger.Info("recording session started",
		"session", sess.ID, "strategy", sess.Strategy)

	// Device acquisition can block on a permission prompt; never on the
	// caller's goroutine.
	go func() {
		if err := r.strategy.Start(ctx, sink); err != nil {
			r.failSession(sess.ID, err)
			return
		}
		r.beginCapture(sess.ID)
	}()
}

// Stop ends the active capture. Ignored while idle or processing: there is
// no cancel path for an in-flight transcription.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != domain.StatusRecording && r.state != domain.StatusListening {
		r.mu.Unlock()
		return
	}
	r.stopSafetyLocked()
	r.mu.Unlock()

	r.strategy.Stop()
}

func (r *Recorder) beginCapture(id uuid.UUID) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}

	state := domain.StatusRecording
	if r.strategy.ID() == domain.StrategyNativeSpeech {
		state = domain.StatusListening
	}
	update := r.setStateLocked(state, "")
	r.cancelSafety = r.schedule(r.opts.SafetyStop, func() { r.safetyStop(id) })
	r.mu.Unlock()

	r.emitStatus(update)
}

// safetyStop force-ends a capture that hit the duration ceiling.
func (r *Recorder) safetyStop(id uuid.UUID) {
	r.mu.Lock()
	if !r.ownsLocked(id) ||
		(r.state != domain.StatusRecording && r.state != domain.StatusListening) {
		r.mu.Unlock()
		return
	}
	state := r.state
	r.cancelSafety = nil
	r.mu.Unlock()

	r.logger.Info("safety auto-stop reached", "session", id, "limit", r.opts.SafetyStop)
	r.emitStatus(domain.StatusUpdate{
		Status: state,
		Text: fmt.Sprintf("Perekaman dihentikan otomatis (batas %d detik)",
			int(r.opts.SafetyStop/time.Second)),
	})
	r.strategy.Stop()
}

func (r *Recorder) onAudioReady(id uuid.UUID, blob domain.AudioBlob) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	r.stopSafetyLocked()
	r.session.MimeType = blob.MimeType
	r.session.SampleRate = blob.SampleRate
	r.session.Channels = blob.Channels
	update := r.setStateLocked(domain.StatusProcessing, "")
	ctx := r.ctx
	r.mu.Unlock()

	r.emitStatus(update)
	r.logger.Info("uploading recording",
		"session", id, "bytes", blob.Size(), "mime_type", blob.MimeType)

	go func() {
		text, err := r.stt.Transcribe(ctx, blob)
		if err != nil {
			r.failSession(id, err)
			return
		}
		r.succeed(id, text)
	}()
}

func (r *Recorder) onTextReady(id uuid.UUID, text string) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	r.stopSafetyLocked()
	update := r.setStateLocked(domain.StatusProcessing, "")
	r.mu.Unlock()

	r.emitStatus(update)

	// Keep the processing indicator up for the same beat the upload
	// strategies spend on the network.
	r.schedule(r.opts.ProcessingDelay, func() { r.succeed(id, text) })
}

func (r *Recorder) succeed(id uuid.UUID, text string) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	update := r.setStateLocked(domain.StatusSuccess, "")
	r.cancelReset = r.schedule(r.opts.ResetDelay, func() { r.reset(id) })
	r.mu.Unlock()

	r.logger.Info("transcript ready", "session", id, "chars", len(text))
	if r.cb.OnTranscript != nil {
		r.cb.OnTranscript(text)
	}
	r.emitStatus(update)
}

func (r *Recorder) failSession(id uuid.UUID, err error) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	r.stopSafetyLocked()
	msg := domain.UserMessageFor(err)
	update := r.setStateLocked(domain.StatusError, "Gagal: "+msg)
	r.cancelReset = r.schedule(r.opts.ResetDelay, func() { r.reset(id) })
	r.mu.Unlock()

	r.logger.Error("recording session failed",
		"session", id, "kind", domain.KindOf(err), "error", err)
	if r.cb.OnError != nil {
		r.cb.OnError(msg)
	}
	r.emitStatus(update)
}

func (r *Recorder) onNoInput(id uuid.UUID, msg string) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	r.stopSafetyLocked()
	// Informational outcome: no processing transition, straight to Idle.
	r.session = nil
	r.state = domain.StatusIdle
	r.mu.Unlock()

	r.logger.Info("session ended without input", "session", id)
	r.emitStatus(domain.StatusUpdate{Status: domain.StatusIdle, Text: msg})
}

func (r *Recorder) reset(id uuid.UUID) {
	r.mu.Lock()
	if !r.ownsLocked(id) {
		r.mu.Unlock()
		return
	}
	r.session = nil
	r.cancelReset = nil
	update := r.setStateLocked(domain.StatusIdle, "")
	r.mu.Unlock()

	r.emitStatus(update)
}

func (r *Recorder) ownsLocked(id uuid.UUID) bool {
	return r.session != nil && r.session.ID == id
}

func (r *Recorder) stopSafetyLocked() {
	if r.cancelSafety != nil {
		r.cancelSafety()
		r.cancelSafety = nil
	}
}

func (r *Recorder) setStateLocked(s domain.Status, text string) domain.StatusUpdate {
	r.state = s
	if r.session != nil {
		r.session.State = s
	}
	if text == "" {
		text = s.DisplayText()
	}
	return domain.StatusUpdate{Status: s, Text: text}
}

// emitStatus runs outside the lock: callbacks may call back into the
// recorder.
func (r *Recorder) emitStatus(update domain.StatusUpdate) {
	if r.cb.OnStatusChange != nil {
		r.cb.OnStatusChange(update)
	}
}

// sessionSink routes strategy events to the recorder, dropping anything
// from a session that is no longer current.
type sessionSink struct {
	r  *Recorder
	id uuid.UUID
}

func (s *sessionSink) AudioReady(blob domain.AudioBlob) {
	s.r.onAudioReady(s.id, blob)
}

func (s *sessionSink) TextReady(text string) {
	s.r.onTextReady(s.id, text)
}

func (s *sessionSink) Preview(text string) {
	s.r.mu.Lock()
	ok := s.r.ownsLocked(s.id) && s.r.state == domain.StatusListening
	s.r.mu.Unlock()
	if !ok {
		return
	}
	s.r.emitStatus(domain.StatusUpdate{
		Status: domain.StatusListening,
		Text:   "Terdeteksi: " + text,
	})
}

func (s *sessionSink) Level(v float64) {
	s.r.mu.Lock()
	ok := s.r.ownsLocked(s.id) &&
		(s.r.state == domain.StatusRecording || s.r.state == domain.StatusListening)
	onLevel := s.r.cb.OnLevel
	s.r.mu.Unlock()
	if ok && onLevel != nil {
		onLevel(v)
	}
}

func (s *sessionSink) NoInput(msg string) {
	s.r.onNoInput(s.id, msg)
}

func (s *sessionSink) Fail(err error) {
	s.r.failSession(s.id, err)
}
