// Package shard connects scribe to a websocket message bus: audio sent by
// other shards comes back as a transcript.
package shard

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	"scribe/internal/transcribe"
)

const DefaultName = "scribe"

type Transcriber interface {
	TranscribeToText(ctx context.Context, audioPath string) (string, error)
}

type Config struct {
	Name      string        // "" = DefaultName
	Reconnect time.Duration // 0 = stop when the bus closes
	Timeout   time.Duration // per message, 0 = none
}

type Shard struct {
	bus *Bus
	tr  Transcriber
	cfg Config
}

func New(bus *Bus, tr Transcriber, cfg Config) *Shard {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	return &Shard{bus: bus, tr: tr, cfg: cfg}
}

// Run serves the bus until ctx ends or the connection is lost for good.
func (s *Shard) Run(ctx context.Context) error {
	log.Info("Shard ready", "name", s.cfg.Name)

	stop := context.AfterFunc(ctx, func() { s.bus.Close() })
	defer stop()

	for {
		msg, err := s.bus.Read()
		if errors.Is(err, errDecode) {
			log.Warn("Skipping bad bus message", "err", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if s.cfg.Reconnect <= 0 {
				if IsClosed(err) {
					log.Info("Bus closed the connection")
					return nil
				}
				return fmt.Errorf("bus read: %w", err)
			}
			log.Warn("Bus connection lost", "err", err)
			if err := s.bus.Reconnect(ctx, s.cfg.Reconnect); err != nil {
				return nil
			}
			continue
		}

		if msg.To != "" && msg.To != s.cfg.Name {
			continue
		}
		if msg.Kind != KindTranscribe {
			log.Debug("Ignoring bus message", "from", msg.From, "kind", msg.Kind)
			continue
		}

		if err := s.bus.Write(s.handle(ctx, msg)); err != nil {
			log.Error("Failed to send reply", "to", msg.From, "err", err)
		}
	}
}

func (s *Shard) handle(ctx context.Context, msg *Message) *Message {
	reply := &Message{From: s.cfg.Name, To: msg.From, Kind: KindTranscript}

	if len(msg.Audio) == 0 {
		reply.Kind, reply.Content = KindError, "no audio in message"
		return reply
	}

	path, err := spool(msg.Audio, msg.Content)
	if err != nil {
		log.Error("Failed to spool audio", "err", err)
		reply.Kind, reply.Content = KindError, transcribe.IOError.String()+": "+err.Error()
		return reply
	}
	defer os.Remove(path)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	text, err := s.tr.TranscribeToText(ctx, path)
	if err != nil {
		reply.Kind, reply.Content = KindError, transcribe.OutcomeOf(err).String()+": "+err.Error()
		return reply
	}

	log.Info("Transcribed bus audio", "from", msg.From, "bytes", len(msg.Audio), "chars", len(text))
	reply.Content = text
	return reply
}

// spool writes audio to a temp file whose extension comes from format
// ("mp3", ".ogg"); an empty format leaves detection to the content.
func spool(audio []byte, format string) (string, error) {
	ext := strings.TrimPrefix(strings.TrimSpace(format), ".")
	if ext != "" {
		if strings.ContainsAny(ext, `/\`) {
			return "", fmt.Errorf("bad audio format %q", format)
		}
		ext = "." + ext
	}

	f, err := os.CreateTemp("", "scribe-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
