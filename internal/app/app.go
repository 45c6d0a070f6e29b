// Package app builds a transcription client from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	log "log/slog"

	"google.golang.org/api/option"

	"scribe/internal/config"
	"scribe/internal/proxy"
	"scribe/internal/transcribe"
	"scribe/pkg/stt"
)

type App struct {
	Client     *transcribe.Client
	Recognizer stt.Recognizer

	closers []io.Closer
}

// Build creates the configured recognizer (behind a SOCKS proxy and retry
// policy when requested) and the client that drives it.
func Build(ctx context.Context, cfg *config.Config, opts ...transcribe.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}
	r, err := a.recognizer(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Recognizer = stt.WithRetry(r, stt.RetryPolicy{
		Attempts: cfg.Retries + 1,
		Backoff:  cfg.RetryBackoff,
		Logger:   log.Default().With("component", "retry"),
	})

	base := []transcribe.Option{
		transcribe.WithBaseDir(cfg.BaseDir),
		transcribe.WithSkipSilence(cfg.SkipSilence),
	}
	a.Client, err = transcribe.New(a.Recognizer, append(base, opts...)...)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Debug("Built transcription client", "provider", r.Name(), "base", a.Client.BaseDir(), "retries", cfg.Retries, "proxy", cfg.ProxyAddr)
	return a, nil
}

func (a *App) recognizer(ctx context.Context, cfg *config.Config) (stt.Recognizer, error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		gc := stt.GoogleConfig{
			LanguageCode:    cfg.Language,
			APIKey:          cfg.GoogleAPIKey,
			CredentialsFile: cfg.GoogleCredentials,
			Endpoint:        cfg.GoogleEndpoint,
			Logger:          log.Default().With("provider", "google"),
		}
		if cfg.ProxyAddr != "" {
			dial, err := proxy.GRPCOption(cfg.ProxyAddr)
			if err != nil {
				return nil, fmt.Errorf("proxy %s: %w", cfg.ProxyAddr, err)
			}
			gc.ClientOptions = []option.ClientOption{dial}
		}
		g, err := stt.NewGoogle(ctx, gc)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g)
		return g, nil

	case config.ProviderOpenAI:
		oc := stt.OpenAIConfig{
			APIKey:   cfg.OpenAIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIModel,
			Language: cfg.Language,
		}
		if cfg.ProxyAddr != "" {
			hc, err := proxy.NewSocksClient(cfg.ProxyAddr, cfg.Timeout)
			if err != nil {
				return nil, fmt.Errorf("proxy %s: %w", cfg.ProxyAddr, err)
			}
			oc.HTTPClient = hc
		}
		o, err := stt.NewOpenAI(oc)
		if err != nil {
			return nil, err
		}
		return o, nil

	case config.ProviderWhisper:
		lang := cfg.Language
		if lang == "" {
			lang = "auto"
		}
		w, err := stt.NewWhisper(cfg.WhisperModel, stt.WhisperOptions{Language: lang})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, w)
		return w, nil
	}
	return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
}

// LogProgress is a stt.ProgressFunc that reports through the default logger.
func LogProgress(done, total int) {
	if done == 0 {
		log.Debug("Recognition started", "pieces", total)
		return
	}
	log.Debug("Recognition progress", "done", done, "of", total)
}

// Close releases the recognizer's connections and models.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
