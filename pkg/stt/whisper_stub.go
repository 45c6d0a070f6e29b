//go:build !whisper

package stt

import (
	"context"
	"errors"

	"scribe/pkg/audioconv"
)

var errNoWhisper = errors.New("whisper recognizer not compiled in (build with: go build -tags whisper)")

// Whisper is a placeholder when built without whisper.cpp.
type Whisper struct{}

func NewWhisper(string, WhisperOptions) (*Whisper, error) {
	return nil, errNoWhisper
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Close() error { return nil }

func (w *Whisper) Recognize(context.Context, *audioconv.Recording) (string, error) {
	return "", errNoWhisper
}
