// Package devstub implements the /api/stt and /api/process wire contracts
// for local development and tests. It returns a canned transcript and a
// naive transaction extraction; the real backends live elsewhere.
package devstub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxUploadBytes = 10 << 20

// Server is the development stand-in for the transcription and extraction
// backends.
type Server struct {
	addr       string
	transcript string
	logger     *slog.Logger

	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer builds a stub answering every transcription request with the
// given transcript.
func NewServer(addr, transcript string, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		transcript:  transcript,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
	}
	s.mux.HandleFunc("POST /api/stt", s.rateLimiter.Middleware(s.handleSTT))
	s.mux.HandleFunc("POST /api/process", s.rateLimiter.Middleware(s.handleProcess))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler exposes the mux for httptest-style wiring.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		s.logger.Info("dev stt stub listening", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stub server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	s.running = false
	return nil
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1024)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing audio field", err.Error())
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unreadable audio", err.Error())
		return
	}
	if size == 0 {
		writeJSONError(w, http.StatusBadRequest, "empty audio", "")
		return
	}

	s.logger.Info("stub transcription request",
		"filename", header.Filename, "bytes", size)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"text":    s.transcript,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "empty text", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"type":        InferType(req.Text),
		"amount":      InferAmount(req.Text),
		"category":    "lainnya",
		"description": req.Text,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","running":%t}`, running)
}

func writeJSONError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   msg,
		"details": details,
	})
}

// InferAmount finds the first numeric token in the transcript and applies
// a following Indonesian scale word ("ribu" ×1e3, "juta" ×1e6). Good
// enough for a stub; the real extractor runs an LLM.
func InferAmount(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		w = strings.Trim(w, ".,!?")
		w = strings.ReplaceAll(w, ".", "")
		w = strings.ReplaceAll(w, ",", ".")
		n, err := strconv.ParseFloat(w, 64)
		if err != nil {
			continue
		}
		if i+1 < len(words) {
			switch strings.Trim(words[i+1], ".,!?") {
			case "ribu", "rb":
				return n * 1_000
			case "juta", "jt":
				return n * 1_000_000
			}
		}
		return n
	}
	return 0
}

// InferType guesses income vs expense from common Indonesian verbs.
func InferType(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range []string{"terima", "gaji", "dapat", "dapet", "masuk"} {
		if strings.Contains(lower, marker) {
			return "income"
		}
	}
	return "expense"
}
