package capture

import (
	"sync"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
)

// recordingSink captures every strategy event for assertions.
type recordingSink struct {
	mu       sync.Mutex
	blobs    []domain.AudioBlob
	texts    []string
	previews []string
	levels   []float64
	noInput  []string
	errs     []error
}

func (s *recordingSink) AudioReady(blob domain.AudioBlob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = append(s.blobs, blob)
}

func (s *recordingSink) TextReady(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSink) Preview(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews = append(s.previews, text)
}

func (s *recordingSink) Level(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, v)
}

func (s *recordingSink) NoInput(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noInput = append(s.noInput, msg)
}

func (s *recordingSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// fakeMic satisfies Microphone and lets tests inject sample frames.
type fakeMic struct {
	mu         sync.Mutex
	startErr   error
	starts     int
	stops      int
	sampleRate int
	channels   int
	onData     func(samples []float32)
}

func (m *fakeMic) Start(sampleRate, channels int, onData func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	m.sampleRate = sampleRate
	m.channels = channels
	m.onData = onData
	return nil
}

func (m *fakeMic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func (m *fakeMic) emit(samples []float32) {
	m.mu.Lock()
	onData := m.onData
	m.mu.Unlock()
	if onData != nil {
		onData(samples)
	}
}

func (m *fakeMic) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// fakeMediaRecorder satisfies MediaRecorder. Chunks in flush are emitted
// through onChunk during Stop, matching real recorders that deliver the
// final chunk on teardown.
type fakeMediaRecorder struct {
	mu        sync.Mutex
	supported map[string]bool
	mimeType  string
	startErr  error
	starts    int
	stops     int
	timeslice time.Duration
	onChunk   func(chunk []byte)
	flush     [][]byte
}

func (r *fakeMediaRecorder) IsTypeSupported(mimeType string) bool {
	return r.supported[mimeType]
}

func (r *fakeMediaRecorder) Start(timeslice time.Duration, onChunk func(chunk []byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.timeslice = timeslice
	r.onChunk = onChunk
	return nil
}

func (r *fakeMediaRecorder) MimeType() string {
	return r.mimeType
}

func (r *fakeMediaRecorder) Stop() error {
	r.mu.Lock()
	onChunk := r.onChunk
	flush := r.flush
	r.stops++
	r.mu.Unlock()

	for _, c := range flush {
		onChunk(c)
	}
	return nil
}

func (r *fakeMediaRecorder) emit(chunk []byte) {
	r.mu.Lock()
	onChunk := r.onChunk
	r.mu.Unlock()
	if onChunk != nil {
		onChunk(chunk)
	}
}
