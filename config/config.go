package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Speech  SpeechConfig  `yaml:"speech"`
	Backend BackendConfig `yaml:"backend"`
	Stub    StubConfig    `yaml:"stub"`
	Log     LogConfig     `yaml:"log"`
}

type AudioConfig struct {
	// Strategy selects a capture strategy by name, or "auto" to let
	// capability detection decide.
	Strategy   string `yaml:"strategy"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type SpeechConfig struct {
	// EngineURL is the websocket endpoint of the streaming recognizer.
	// Empty means native speech is unavailable.
	EngineURL string `yaml:"engine_url"`
	Language  string `yaml:"language"`
	// NoSpeechTimeout ends a listening session that produced nothing.
	NoSpeechTimeout string `yaml:"no_speech_timeout"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

type StubConfig struct {
	Addr       string `yaml:"addr"`
	Transcript string `yaml:"transcript"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Strategy == "" {
		c.Audio.Strategy = "auto"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "id-ID"
	}
	if c.Speech.NoSpeechTimeout == "" {
		c.Speech.NoSpeechTimeout = "8s"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8990"
	}
	if c.Stub.Addr == "" {
		c.Stub.Addr = ":8990"
	}
	if c.Stub.Transcript == "" {
		c.Stub.Transcript = "Beli kopi 25 ribu"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
