// Package stt is the boundary to speech recognizers: a loaded recording goes
// in, a transcript or one of two failure kinds comes out.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scribe/pkg/audioconv"
)

// ErrNoMatch means the recognizer processed the audio but found no speech.
var ErrNoMatch = errors.New("speech recognition could not understand audio")

type Recognizer interface {
	Recognize(ctx context.Context, rec *audioconv.Recording) (string, error)
	Name() string
}

// URIRecognizer is implemented by recognizers whose service fetches the
// audio itself from cloud storage.
type URIRecognizer interface {
	RecognizeURI(ctx context.Context, uri string) (string, error)
}

// ErrRemoteUnsupported is returned for a cloud storage URI when the
// recognizer can only be sent audio content.
var ErrRemoteUnsupported = errors.New("recognizer cannot read cloud storage audio")

// IsRemoteURI reports whether path names a Google Cloud Storage object.
func IsRemoteURI(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// RequestError means the recognizer could not be asked at all, or refused:
// network failure, quota, bad credentials, malformed request, outage.
type RequestError struct {
	Provider string
	Err      error
	Help     string // optional URL with troubleshooting hints
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("could not request results from %s: %v", e.Provider, e.Err)
	if e.Help != "" {
		msg += " (see " + e.Help + ")"
	}
	return msg
}

func (e *RequestError) Unwrap() error { return e.Err }

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, rec *audioconv.Recording) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, rec *audioconv.Recording) (string, error) {
	return f(ctx, rec)
}

func (f RecognizerFunc) Name() string { return "func" }
