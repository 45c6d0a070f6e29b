// Package transcribe turns audio files into text through a speech
// recognizer, returning the transcript or writing it to a file.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"time"

	"scribe/pkg/audioconv"
	"scribe/pkg/stt"
)

const (
	opText = "transcribe"
	opFile = "transcribe-to-file"
)

type Client struct {
	recognizer  stt.Recognizer
	baseDir     string
	log         *log.Logger
	appendOut   bool
	skipSilence bool
	load        audioconv.Options
	progress    stt.ProgressFunc
}

type Option func(*Client)

// WithBaseDir anchors relative paths at dir instead of the executable's directory.
func WithBaseDir(dir string) Option {
	return func(c *Client) { c.baseDir = dir }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithAppend makes TranscribeToFile append a line instead of truncating.
func WithAppend(on bool) Option {
	return func(c *Client) { c.appendOut = on }
}

// WithSkipSilence reports NoMatch for silent recordings without calling the recognizer.
func WithSkipSilence(on bool) Option {
	return func(c *Client) { c.skipSilence = on }
}

func WithLoadOptions(opt audioconv.Options) Option {
	return func(c *Client) { c.load = opt }
}

// WithProgress passes fn to the recognizer for every transcription.
func WithProgress(fn stt.ProgressFunc) Option {
	return func(c *Client) { c.progress = fn }
}

func New(r stt.Recognizer, opts ...Option) (*Client, error) {
	if r == nil {
		return nil, errors.New("transcribe: nil recognizer")
	}

	c := &Client{recognizer: r, log: log.Default()}
	for _, o := range opts {
		o(c)
	}

	if c.baseDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, fmt.Errorf("transcribe: base dir: %w", err)
		}
		c.baseDir = dir
	}
	abs, err := filepath.Abs(c.baseDir)
	if err != nil {
		return nil, fmt.Errorf("transcribe: base dir: %w", err)
	}
	c.baseDir = abs

	return c, nil
}

// ExecutableDir is the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func (c *Client) BaseDir() string { return c.baseDir }

// Resolve anchors a relative path at the base directory. Absolute paths
// are only cleaned and gs:// URIs are returned as given.
func (c *Client) Resolve(path string) string {
	if stt.IsRemoteURI(path) {
		return path
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.baseDir, path)
}

// TranscribeToText returns the recognizer's transcript of the audio file
// exactly as received.
func (c *Client) TranscribeToText(ctx context.Context, audioPath string) (string, error) {
	return c.transcribe(ctx, opText, c.Resolve(audioPath))
}

// TranscribeToFile writes the transcript of the audio file to outputPath.
// The output file is only touched when recognition succeeds.
func (c *Client) TranscribeToFile(ctx context.Context, audioPath, outputPath string) error {
	out := c.Resolve(outputPath)

	if err := checkDir(filepath.Dir(out)); err != nil {
		return c.fail(opFile, out, IOError, err)
	}

	text, err := c.transcribe(ctx, opFile, c.Resolve(audioPath))
	if err != nil {
		return err
	}

	if err := c.write(out, text); err != nil {
		return c.fail(opFile, out, IOError, err)
	}

	c.log.Info("Transcript written", "output", out, "chars", len(text), "append", c.appendOut)
	return nil
}

func (c *Client) transcribe(ctx context.Context, op, path string) (string, error) {
	ctx = stt.WithProgress(ctx, c.progress)
	if stt.IsRemoteURI(path) {
		return c.transcribeURI(ctx, op, path)
	}

	rec, err := audioconv.LoadFile(ctx, path, c.load)
	if err != nil {
		return "", c.fail(op, path, IOError, err)
	}

	c.log.Debug("Loaded audio", "audio", path, "format", rec.Format, "duration", rec.Duration())

	if c.skipSilence && audioconv.IsSilent(rec.Samples, 0) {
		return "", c.fail(op, path, NoMatch, stt.ErrNoMatch)
	}

	start := time.Now()
	text, err := c.recognizer.Recognize(ctx, rec)
	if err != nil {
		return "", c.fail(op, path, classify(err), err)
	}

	c.log.Debug("Recognized", "provider", c.recognizer.Name(), "audio", path, "chars", len(text), "took", time.Since(start))
	return text, nil
}

// transcribeURI hands a cloud storage object to the recognizer without
// reading it locally.
func (c *Client) transcribeURI(ctx context.Context, op, uri string) (string, error) {
	ur, ok := c.recognizer.(stt.URIRecognizer)
	if !ok {
		return "", c.fail(op, uri, IOError, stt.ErrRemoteUnsupported)
	}

	start := time.Now()
	text, err := ur.RecognizeURI(ctx, uri)
	if err != nil {
		return "", c.fail(op, uri, classify(err), err)
	}

	c.log.Debug("Recognized", "provider", c.recognizer.Name(), "audio", uri, "chars", len(text), "took", time.Since(start))
	return text, nil
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, stt.ErrNoMatch):
		return NoMatch
	case errors.Is(err, stt.ErrRemoteUnsupported):
		return IOError
	}
	return ServiceError
}

// fail logs the human readable message and builds the returned error.
func (c *Client) fail(op, path string, kind Outcome, err error) error {
	provider := c.recognizer.Name()
	switch kind {
	case NoMatch:
		c.log.Warn("Speech recognition could not understand audio", "provider", provider, "audio", path)
	case ServiceError:
		c.log.Error("Could not request results from speech recognition service", "provider", provider, "audio", path, "err", err)
	case IOError:
		c.log.Error("Could not access file", "path", path, "err", err)
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

func (c *Client) write(path, text string) (err error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if c.appendOut {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		text += "\n"
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = f.WriteString(text)
	return err
}

func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
