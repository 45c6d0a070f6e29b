package stt

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"scribe/pkg/audioconv"
)

// RetryPolicy controls how often a failed request is repeated.
// Attempts <= 1 means a single try. The wait before attempt n+1 is n*Backoff.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Logger   *log.Logger // nil = slog.Default()
}

type retrying struct {
	next   Recognizer
	policy RetryPolicy
	log    *log.Logger
}

// WithRetry repeats RequestErrors according to p. NoMatch and any other
// error are returned immediately.
func WithRetry(r Recognizer, p RetryPolicy) Recognizer {
	if p.Attempts <= 1 {
		return r
	}
	l := p.Logger
	if l == nil {
		l = log.Default()
	}
	return &retrying{next: r, policy: p, log: l}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Recognize(ctx context.Context, rec *audioconv.Recording) (string, error) {
	return r.do(ctx, func() (string, error) {
		return r.next.Recognize(ctx, rec)
	})
}

func (r *retrying) RecognizeURI(ctx context.Context, uri string) (string, error) {
	ur, ok := r.next.(URIRecognizer)
	if !ok {
		return "", ErrRemoteUnsupported
	}
	return r.do(ctx, func() (string, error) {
		return ur.RecognizeURI(ctx, uri)
	})
}

func (r *retrying) do(ctx context.Context, call func() (string, error)) (string, error) {
	for attempt := 1; ; attempt++ {
		text, err := call()

		var reqErr *RequestError
		if err == nil || !errors.As(err, &reqErr) || attempt >= r.policy.Attempts {
			return text, err
		}

		wait := time.Duration(attempt) * r.policy.Backoff
		r.log.Warn("Recognizer request failed, retrying", "provider", r.next.Name(), "attempt", attempt, "wait", wait, "err", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", err
		case <-t.C:
		}
	}
}
