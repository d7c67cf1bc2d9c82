package speech

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// AudioFeed supplies raw microphone samples to the engine. Satisfied by
// capture.Microphone implementations.
type AudioFeed interface {
	Start(sampleRate, channels int, onData func(samples []float32)) error
	Stop() error
}

// StreamEngine talks to a live recognition endpoint over a websocket:
// linear16 PCM frames out, JSON transcript messages in. Message shape:
//
//	{"transcript": "...", "is_final": true}
//	{"error": "no_speech"}
//
// A session with no transcript within noSpeechAfter is ended with
// ErrNoSpeech, mirroring the recoverable no-speech timeout of on-device
// recognition engines.
type StreamEngine struct {
	endpoint      string
	feed          AudioFeed
	sampleRate    int
	noSpeechAfter time.Duration
	dialer        *websocket.Dialer
	logger        *slog.Logger

	mu            sync.Mutex
	writeMu       sync.Mutex
	conn          *websocket.Conn
	handler       Handler
	results       []Result
	noSpeechTimer *time.Timer
	endOnce       *sync.Once
}

type streamMessage struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
	Error      string `json:"error"`
}

func NewStreamEngine(endpoint string, feed AudioFeed, sampleRate int, noSpeechAfter time.Duration, logger *slog.Logger) *StreamEngine {
	return &StreamEngine{
		endpoint:      endpoint,
		feed:          feed,
		sampleRate:    sampleRate,
		noSpeechAfter: noSpeechAfter,
		dialer:        websocket.DefaultDialer,
		logger:        logger,
	}
}

// Start dials the recognition endpoint and begins streaming microphone
// audio. Events arrive on h until OnEnd fires.
func (e *StreamEngine) Start(cfg Config, h Handler) error {
	e.mu.Lock()
	if e.conn != nil {
		e.mu.Unlock()
		return fmt.Errorf("speech: session already running")
	}

	q := url.Values{}
	q.Set("language", cfg.Language)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(e.sampleRate))
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("continuous", strconv.FormatBool(cfg.Continuous))

	conn, _, err := e.dialer.Dial(e.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: dialing %s: %v", ErrNetwork, e.endpoint, err)
	}

	e.conn = conn
	e.handler = h
	e.results = nil
	e.endOnce = &sync.Once{}
	if e.noSpeechAfter > 0 {
		e.noSpeechTimer = time.AfterFunc(e.noSpeechAfter, e.noSpeechTimeout)
	}
	once := e.endOnce
	e.mu.Unlock()

	if err := e.feed.Start(e.sampleRate, 1, e.onAudio); err != nil {
		e.finish(once)
		return fmt.Errorf("%w: %v", ErrAudioCapture, err)
	}

	go e.readLoop(conn, h, once)
	return nil
}

// Stop ends the session gracefully: the feed is stopped, a close frame is
// sent, and OnEnd fires once the server closes its side (or the read
// deadline expires).
func (e *StreamEngine) Stop() {
	e.feed.Stop()

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return
	}

	e.writeMu.Lock()
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session done"))
	e.writeMu.Unlock()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
}

// Abort tears the session down immediately without waiting for the server.
func (e *StreamEngine) Abort() {
	e.mu.Lock()
	once := e.endOnce
	e.mu.Unlock()
	if once != nil {
		e.finish(once)
	}
}

func (e *StreamEngine) onAudio(samples []float32) {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil || len(samples) == 0 {
		return
	}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s < -1 {
			s = -1
		}
		if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	e.writeMu.Lock()
	err := conn.WriteMessage(websocket.BinaryMessage, pcm)
	e.writeMu.Unlock()
	if err != nil {
		e.logger.Debug("speech: dropping audio frame", "error", err)
	}
}

func (e *StreamEngine) readLoop(conn *websocket.Conn, h Handler, once *sync.Once) {
	defer e.finish(once)

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Error != "" {
			if msg.Error == "no_speech" {
				e.stopNoSpeechTimer()
				h.OnError(ErrNoSpeech)
			} else {
				h.OnError(fmt.Errorf("speech: engine error: %s", msg.Error))
			}
			return
		}

		if msg.Transcript == "" {
			continue
		}

		e.stopNoSpeechTimer()
		h.OnResult(e.appendResult(msg.Transcript, msg.IsFinal))
	}
}

// appendResult folds one message into the session result list: a final
// segment replaces any trailing interim; an interim revises the trailing
// interim in place.
func (e *StreamEngine) appendResult(text string, final bool) []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.results)
	if n > 0 && !e.results[n-1].Final {
		e.results = e.results[:n-1]
	}
	e.results = append(e.results, Result{Text: text, Final: final})

	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

func (e *StreamEngine) noSpeechTimeout() {
	e.mu.Lock()
	h := e.handler
	gotAny := len(e.results) > 0
	once := e.endOnce
	e.mu.Unlock()

	if gotAny || once == nil {
		return
	}
	h.OnError(ErrNoSpeech)
	e.finish(once)
}

func (e *StreamEngine) stopNoSpeechTimer() {
	e.mu.Lock()
	if e.noSpeechTimer != nil {
		e.noSpeechTimer.Stop()
		e.noSpeechTimer = nil
	}
	e.mu.Unlock()
}

// finish releases the feed and connection and fires OnEnd exactly once
// per session.
func (e *StreamEngine) finish(once *sync.Once) {
	once.Do(func() {
		e.feed.Stop()
		e.stopNoSpeechTimer()

		e.mu.Lock()
		conn := e.conn
		h := e.handler
		e.conn = nil
		e.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		if h.OnEnd != nil {
			h.OnEnd()
		}
	})
}
