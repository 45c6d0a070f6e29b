package ipc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scribe/internal/transcribe"
)

type Transcriber interface {
	TranscribeToText(ctx context.Context, audioPath string) (string, error)
	TranscribeToFile(ctx context.Context, audioPath, outputPath string) error
}

// TranscribeHandler answers ping and transcribe requests with t. A request
// with an Output writes the transcript there instead of returning it.
// timeout <= 0 means no per-request limit.
func TranscribeHandler(t Transcriber, timeout time.Duration) Handler {
	return func(ctx context.Context, req Request) Response {
		switch req.Cmd {
		case CmdPing:
			return Response{Outcome: "pong"}
		case CmdTranscribe:
		default:
			return Response{Outcome: "error", Error: fmt.Sprintf("unknown command %q", req.Cmd)}
		}

		if req.Audio == "" {
			return Response{Outcome: "error", Error: "audio path required"}
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var (
			text string
			err  error
		)
		if req.Output != "" {
			err = t.TranscribeToFile(ctx, req.Audio, req.Output)
		} else {
			text, err = t.TranscribeToText(ctx, req.Audio)
		}

		resp := Response{Outcome: transcribe.OutcomeOf(err).String(), Text: text}
		if err != nil {
			resp.Error = err.Error()
		}
		return resp
	}
}

// OutcomeOf maps a response back to a transcription outcome. Responses that
// are not transcription outcomes (pong, protocol errors) return false.
func OutcomeOf(resp Response) (transcribe.Outcome, bool) {
	for _, o := range []transcribe.Outcome{transcribe.Success, transcribe.NoMatch, transcribe.ServiceError, transcribe.IOError} {
		if o.String() == resp.Outcome {
			return o, true
		}
	}
	return 0, false
}

var errNotOutcome = errors.New("not a transcription response")

// Err converts a transcription response into the error a local call would
// have returned, keeping the outcome's sentinel.
func (r Response) Err() error {
	o, ok := OutcomeOf(r)
	if !ok {
		if r.Error != "" {
			return errors.New(r.Error)
		}
		return errNotOutcome
	}
	switch o {
	case transcribe.NoMatch:
		return fmt.Errorf("%w: %s", transcribe.ErrNoMatch, r.Error)
	case transcribe.ServiceError:
		return fmt.Errorf("%w: %s", transcribe.ErrServiceError, r.Error)
	case transcribe.IOError:
		return fmt.Errorf("%w: %s", transcribe.ErrIO, r.Error)
	}
	return nil
}
