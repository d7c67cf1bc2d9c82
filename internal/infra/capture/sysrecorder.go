//go:build portaudio
// +build portaudio

package capture

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const sysFramesPerBuffer = 1024

// HaveSystemRecorder reports whether the portaudio backend was compiled in.
const HaveSystemRecorder = true

// SystemMediaRecorder is the portaudio-backed MediaRecorder. It emits a
// streaming WAV: one header chunk up front, then PCM chunks at the
// configured timeslice.
type SystemMediaRecorder struct {
	sampleRate int
	logger     *slog.Logger

	mu       sync.Mutex
	stream   *portaudio.Stream
	buffer   []int16
	levelTap func(samples []float32)
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSystemMediaRecorder(sampleRate int, logger *slog.Logger) *SystemMediaRecorder {
	return &SystemMediaRecorder{sampleRate: sampleRate, logger: logger}
}

// IsTypeSupported reports the containers this backend can produce.
func (r *SystemMediaRecorder) IsTypeSupported(mimeType string) bool {
	return mimeType == "audio/wav"
}

func (r *SystemMediaRecorder) MimeType() string {
	return "audio/wav"
}

func (r *SystemMediaRecorder) TapLevel(onSamples func(samples []float32)) {
	r.mu.Lock()
	r.levelTap = onSamples
	r.mu.Unlock()
}

func (r *SystemMediaRecorder) Start(timeslice time.Duration, onChunk func(chunk []byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return fmt.Errorf("%w: recorder already running", ErrDeviceInUse)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnsupported, err)
	}

	r.buffer = make([]int16, sysFramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), sysFramesPerBuffer, r.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrDeviceMissing, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	}

	r.stream = stream
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	onChunk(streamingWAVHeader(r.sampleRate, 1))
	go r.captureLoop(stream, timeslice, onChunk, r.stopCh, r.doneCh)
	return nil
}

func (r *SystemMediaRecorder) captureLoop(stream *portaudio.Stream, timeslice time.Duration, onChunk func([]byte), stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var pending []byte
	lastFlush := time.Now()

	for {
		select {
		case <-stopCh:
			if len(pending) > 0 {
				onChunk(pending)
			}
			return
		default:
		}

		if err := stream.Read(); err != nil {
			r.logger.Warn("reading capture stream", "error", err)
			if len(pending) > 0 {
				onChunk(pending)
			}
			return
		}

		r.mu.Lock()
		tap := r.levelTap
		r.mu.Unlock()
		if tap != nil {
			tap(int16ToFloat32(r.buffer))
		}

		for _, s := range r.buffer {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(s))
			pending = append(pending, b[:]...)
		}

		if time.Since(lastFlush) >= timeslice {
			onChunk(pending)
			pending = nil
			lastFlush = time.Now()
		}
	}
}

func (r *SystemMediaRecorder) Stop() error {
	r.mu.Lock()
	stream := r.stream
	stopCh := r.stopCh
	doneCh := r.doneCh
	r.stream = nil
	r.mu.Unlock()

	if stream == nil {
		return nil
	}

	close(stopCh)
	<-doneCh

	stream.Stop()
	stream.Close()
	portaudio.Terminate()
	return nil
}

func int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / 32768
	}
	return out
}
