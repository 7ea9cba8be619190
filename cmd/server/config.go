package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port            string        `yaml:"port"`
	APIURL          string        `yaml:"apiURL"`
	Language        string        `yaml:"language"`
	DefaultCategory string        `yaml:"defaultCategory"`
	VoiceURL        string        `yaml:"voiceURL"`
	LogLevel        string        `yaml:"logLevel"`
	SessionTTL      time.Duration `yaml:"sessionTTL"`
}

const (
	envAPIURL   = "AGRISAARTHI_API_URL"
	envPort     = "AGRISAARTHI_PORT"
	envLanguage = "AGRISAARTHI_LANGUAGE"
	envLogLevel = "AGRISAARTHI_LOG_LEVEL"
)

func defaultConfig() config {
	return config{
		Port:            "8080",
		Language:        "en-US",
		DefaultCategory: "crop_info",
		VoiceURL:        "https://elevenlabs.io/app/talk-to?agent_id=agent_2201k29qy875eqwadz4g9vw7n2ck",
		LogLevel:        "info",
		SessionTTL:      24 * time.Hour,
	}
}

// loadConfig builds the configuration from the optional YAML file at path, an optional .env file in
// the working directory, and the process environment, in that order of precedence from lowest to
// highest.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	// A missing .env file is fine, the environment may already carry everything.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config{}, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg.APIURL = getEnv(envAPIURL, cfg.APIURL)
	cfg.Port = getEnv(envPort, cfg.Port)
	cfg.Language = getEnv(envLanguage, cfg.Language)
	cfg.LogLevel = getEnv(envLogLevel, cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required, set %s", envAPIURL)
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}
	if c.DefaultCategory == "" {
		return fmt.Errorf("default category is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
