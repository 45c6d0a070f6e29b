package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scribe/pkg/audioconv"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // "" = api.openai.com
	Model      string // "" = whisper-1
	Language   string // ISO-639-1 hint, "" = auto
	HTTPClient *http.Client
}

// OpenAI recognizes speech with the OpenAI audio transcription endpoint.
type OpenAI struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: empty api key")
	}

	// retries belong to the caller, see WithRetry
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}

	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Recognize(ctx context.Context, rec *audioconv.Recording) (string, error) {
	body, err := rec.WAV()
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(body), "audio.wav", "audio/wav"),
		Model: o.model,
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}

	ReportProgress(ctx, 0, 1)
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &RequestError{Provider: o.Name(), Err: err}
	}
	ReportProgress(ctx, 1, 1)
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrNoMatch
	}
	return resp.Text, nil
}
