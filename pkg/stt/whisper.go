//go:build whisper

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"scribe/pkg/audioconv"
)

// Whisper runs recognition locally with a whisper.cpp model.
type Whisper struct {
	model whisper.Model // interface, not pointer
	opt   WhisperOptions
}

func NewWhisper(modelPath string, opt WhisperOptions) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m, opt: opt}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

func (w *Whisper) Recognize(ctx context.Context, rec *audioconv.Recording) (string, error) {
	if w.model == nil {
		return "", errors.New("nil model")
	}
	if rec.SampleRate != audioconv.TargetRate {
		return "", fmt.Errorf("whisper needs %d Hz audio, got %d", audioconv.TargetRate, rec.SampleRate)
	}
	if len(rec.Samples) == 0 {
		return "", ErrNoMatch
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", &RequestError{Provider: w.Name(), Err: fmt.Errorf("new context: %w", err)}
	}
	if err := w.configure(wctx); err != nil {
		return "", &RequestError{Provider: w.Name(), Err: err}
	}

	ReportProgress(ctx, 0, 100)
	progress := func(percent int) { ReportProgress(ctx, percent, 100) }
	if err := wctx.Process(rec.Samples, nil, nil, progress); err != nil {
		return "", &RequestError{Provider: w.Name(), Err: fmt.Errorf("process: %w", err)}
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", &RequestError{Provider: w.Name(), Err: ctx.Err()}
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &RequestError{Provider: w.Name(), Err: fmt.Errorf("next segment: %w", err)}
		}
		parts = append(parts, s.Text)
	}

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoMatch
	}
	return text, nil
}

func (w *Whisper) configure(wctx whisper.Context) error {
	opt := w.opt
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	if opt.Offset > 0 {
		wctx.SetOffset(opt.Offset)
	}
	if opt.Duration > 0 {
		wctx.SetDuration(opt.Duration)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.SplitOnWord {
		wctx.SetSplitOnWord(true)
	}
	if opt.MaxTokens > 0 {
		wctx.SetMaxTokensPerSegment(opt.MaxTokens)
	}
	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}
	if opt.TemperatureStep != 0 {
		wctx.SetTemperatureFallback(opt.TemperatureStep)
	}
	return nil
}
