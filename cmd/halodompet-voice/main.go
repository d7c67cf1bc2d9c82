package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/annassetiawan/haloDompet-sub000/config"
	"github.com/annassetiawan/haloDompet-sub000/internal/application"
	"github.com/annassetiawan/haloDompet-sub000/internal/domain"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/capture"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/extract"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/speech"
	"github.com/annassetiawan/haloDompet-sub000/internal/infra/stt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	strategyFlag := flag.String("strategy", "", "capture strategy override (native-speech, ios-optimized, generic-media, raw-pcm)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	id, err := selectStrategy(cfg, *strategyFlag)
	if err != nil {
		logger.Error("selecting strategy", "error", err)
		os.Exit(1)
	}

	strategy, err := buildStrategy(id, cfg, logger)
	if err != nil {
		logger.Error("building strategy", "error", err)
		os.Exit(1)
	}

	sttClient := stt.NewClient(cfg.Backend.BaseURL, logger)
	extractor := extract.NewClient(cfg.Backend.BaseURL)

	transcripts := make(chan string, 1)
	recorder := application.NewRecorder(strategy, sttClient, application.Callbacks{
		OnTranscript: func(text string) {
			select {
			case transcripts <- text:
			default:
			}
		},
		OnError: func(message string) {
			fmt.Println(message)
		},
		OnStatusChange: func(update domain.StatusUpdate) {
			if update.Text != "" {
				fmt.Println(update.Text)
			}
		},
		OnLevel: func(v float64) {
			logger.Debug("input level", "value", fmt.Sprintf("%.2f", v))
		},
	}, logger, application.Options{})

	logger.Info("voice capture ready", "strategy", id, "backend", cfg.Backend.BaseURL)
	fmt.Println("Tekan Enter untuk mulai merekam, Enter lagi untuk berhenti, Ctrl+C untuk keluar.")

	runLoop(ctx, recorder, extractor, transcripts, logger)
}

// runLoop toggles recording on each Enter press and prints the extracted
// transaction after every transcript.
func runLoop(ctx context.Context, recorder *application.Recorder, extractor *extract.Client, transcripts <-chan string, logger *slog.Logger) {
	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			recorder.Stop()
			return

		case _, ok := <-lines:
			if !ok {
				return
			}
			switch recorder.State() {
			case domain.StatusRecording, domain.StatusListening:
				recorder.Stop()
			case domain.StatusIdle, domain.StatusSuccess, domain.StatusError:
				recorder.Start(ctx)
			}

		case text := <-transcripts:
			fmt.Printf("Transkrip: %s\n", text)

			tx, err := extractor.Process(ctx, text)
			if err != nil {
				logger.Error("extraction failed", "error", err)
				continue
			}
			fmt.Printf("Transaksi: %s Rp%.0f (%s): %s\n",
				tx.Type, tx.Amount, tx.Category, tx.Description)
		}
	}
}

func selectStrategy(cfg *config.Config, override string) (domain.StrategyID, error) {
	name := cfg.Audio.Strategy
	if override != "" {
		name = override
	}

	switch name {
	case "", "auto":
		return application.DetectStrategy(application.SystemEnvironment{
			SpeechEndpoint: cfg.Speech.EngineURL,
			GOOS:           runtime.GOOS,
			MediaRecorder:  capture.HaveSystemRecorder,
		}), nil
	case string(domain.StrategyNativeSpeech):
		return domain.StrategyNativeSpeech, nil
	case string(domain.StrategyIOSOptimized):
		return domain.StrategyIOSOptimized, nil
	case string(domain.StrategyGenericMedia):
		return domain.StrategyGenericMedia, nil
	case string(domain.StrategyRawPCM):
		return domain.StrategyRawPCM, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", name)
	}
}

func buildStrategy(id domain.StrategyID, cfg *config.Config, logger *slog.Logger) (application.Strategy, error) {
	switch id {
	case domain.StrategyNativeSpeech:
		if cfg.Speech.EngineURL == "" {
			return nil, fmt.Errorf("native-speech requires speech.engine_url")
		}
		noSpeechAfter, err := time.ParseDuration(cfg.Speech.NoSpeechTimeout)
		if err != nil {
			logger.Warn("invalid no_speech_timeout, using default",
				"error", err, "value", cfg.Speech.NoSpeechTimeout)
			noSpeechAfter = 8 * time.Second
		}
		feed := capture.NewMalgoMicrophone(logger)
		engine := speech.NewStreamEngine(cfg.Speech.EngineURL, feed,
			cfg.Audio.SampleRate, noSpeechAfter, logger)
		continuous := runtime.GOOS == "ios"
		return capture.NewSpeechStrategy(engine, cfg.Speech.Language, continuous, logger), nil

	case domain.StrategyIOSOptimized:
		return capture.NewWavStrategy(capture.NewMalgoMicrophone(logger), logger), nil

	case domain.StrategyGenericMedia:
		rec := capture.NewSystemMediaRecorder(cfg.Audio.SampleRate, logger)
		return capture.NewMediaStrategy(rec, logger), nil

	case domain.StrategyRawPCM:
		return capture.NewPCMStrategy(capture.NewMalgoMicrophone(logger),
			cfg.Audio.SampleRate, logger), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", id)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
