package stt

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"scribe/pkg/audioconv"
)

const (
	GoogleDefaultLanguage = "en-US"
	// synchronous Recognize rejects audio longer than one minute
	GoogleChunkLength = 55 * time.Second

	googleFAQURL = "https://cloud.google.com/speech-to-text/docs/error-messages"
)

type GoogleConfig struct {
	LanguageCode    string        // BCP-47, "" = en-US
	APIKey          string        // takes precedence over CredentialsFile
	CredentialsFile string        // service account JSON; "" = application default credentials
	Endpoint        string        // host:port override
	ChunkLength     time.Duration // 0 = GoogleChunkLength
	ClientOptions   []option.ClientOption
	Logger          *log.Logger // nil = slog.Default()
}

// Google recognizes speech with Google Cloud Speech-to-Text v1.
type Google struct {
	client *speech.Client
	cfg    GoogleConfig
	log    *log.Logger
}

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = GoogleDefaultLanguage
	}
	if cfg.ChunkLength <= 0 {
		cfg.ChunkLength = GoogleChunkLength
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	opts := append([]option.ClientOption(nil), cfg.ClientOptions...)
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Google{client: client, cfg: cfg, log: cfg.Logger}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Close() error {
	return g.client.Close()
}

// Recognize sends the recording as LINEAR16 content. Long recordings are
// split into chunks; the best alternative of every result is kept and the
// pieces are joined with newlines.
func (g *Google) Recognize(ctx context.Context, rec *audioconv.Recording) (string, error) {
	var lines []string

	chunks := rec.Chunks(g.cfg.ChunkLength)
	ReportProgress(ctx, 0, len(chunks))
	for i, chunk := range chunks {
		g.log.Debug("Google recognize", "chunk", i+1, "of", len(chunks), "duration", chunk.Duration())

		resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
			Config: &speechpb.RecognitionConfig{
				Encoding:        speechpb.RecognitionConfig_LINEAR16,
				SampleRateHertz: int32(chunk.SampleRate),
				LanguageCode:    g.cfg.LanguageCode,
			},
			Audio: &speechpb.RecognitionAudio{
				AudioSource: &speechpb.RecognitionAudio_Content{Content: chunk.LINEAR16()},
			},
		})
		if err != nil {
			if len(chunks) > 1 {
				err = fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			return "", &RequestError{Provider: g.Name(), Err: err, Help: googleFAQURL}
		}

		lines = appendTranscripts(lines, resp.GetResults())
		ReportProgress(ctx, i+1, len(chunks))
	}

	if len(lines) == 0 {
		return "", ErrNoMatch
	}
	return strings.Join(lines, "\n"), nil
}

// RecognizeURI transcribes a gs:// object with LongRunningRecognize and
// waits for the operation. Encoding and sample rate are left for the
// service to read from the file header.
func (g *Google) RecognizeURI(ctx context.Context, uri string) (string, error) {
	g.log.Debug("Google long running recognize", "uri", uri)
	ReportProgress(ctx, 0, 1)

	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{LanguageCode: g.cfg.LanguageCode},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	})
	if err != nil {
		return "", &RequestError{Provider: g.Name(), Err: err, Help: googleFAQURL}
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", &RequestError{Provider: g.Name(), Err: fmt.Errorf("operation %s: %w", op.Name(), err), Help: googleFAQURL}
	}
	ReportProgress(ctx, 1, 1)

	lines := appendTranscripts(nil, resp.GetResults())
	if len(lines) == 0 {
		return "", ErrNoMatch
	}
	return strings.Join(lines, "\n"), nil
}

// appendTranscripts keeps the best alternative of every non-empty result.
func appendTranscripts(lines []string, results []*speechpb.SpeechRecognitionResult) []string {
	for _, res := range results {
		alts := res.GetAlternatives()
		if len(alts) == 0 || alts[0].GetTranscript() == "" {
			continue
		}
		lines = append(lines, alts[0].GetTranscript())
	}
	return lines
}
