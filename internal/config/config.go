// Package config loads scribe settings from an optional env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGoogle  = "google"
	ProviderOpenAI  = "openai"
	ProviderWhisper = "whisper"
)

type Config struct {
	Provider     string
	Language     string
	BaseDir      string
	ProxyAddr    string
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	SkipSilence  bool

	GoogleAPIKey      string
	GoogleCredentials string
	GoogleEndpoint    string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	WhisperModel string
}

// Load reads envFile (missing file is not an error) and then the environment.
// Values already present in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Provider:  strings.ToLower(getEnv("SCRIBE_PROVIDER", ProviderGoogle)),
		Language:  os.Getenv("SCRIBE_LANGUAGE"),
		BaseDir:   os.Getenv("SCRIBE_BASE_DIR"),
		ProxyAddr: os.Getenv("SCRIBE_PROXY"),

		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GoogleEndpoint:    os.Getenv("GOOGLE_SPEECH_ENDPOINT"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),

		WhisperModel: os.Getenv("WHISPER_MODEL"),
	}

	var err error
	if cfg.Timeout, err = getDuration("SCRIBE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("SCRIBE_RETRY_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.Retries, err = getInt("SCRIBE_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.SkipSilence, err = getBool("SCRIBE_SKIP_SILENCE", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected provider has what it needs.
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}

	switch c.Provider {
	case ProviderGoogle:
		if c.GoogleAPIKey != "" || c.GoogleCredentials == "" {
			return nil
		}
		fi, err := os.Stat(c.GoogleCredentials)
		if err != nil {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is not set to a real file: %w", err)
		}
		if fi.IsDir() {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is a directory: %s", c.GoogleCredentials)
		}
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY not set")
		}
	case ProviderWhisper:
		if c.WhisperModel == "" {
			return errors.New("WHISPER_MODEL not set")
		}
	default:
		return fmt.Errorf("unsupported provider %q (supported: google, openai, whisper)", c.Provider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
