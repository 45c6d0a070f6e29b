package shard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	KindTranscribe = "transcribe"
	KindTranscript = "transcript"
	KindError      = "error"
)

var errDecode = errors.New("decode bus message")

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Audio   []byte `json:"audio,omitempty"`
}

type Bus struct {
	url string

	mu   sync.Mutex
	conn *ws.Conn
}

func Dial(ctx context.Context, wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url must be ws:// or wss://, got %q", wsURL)
	}

	b := &Bus{url: u.String()}
	if err := b.dial(ctx); err != nil {
		return nil, err
	}
	log.Info("Connected to bus", "url", b.url)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	return nil
}

func (b *Bus) current() *ws.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.current().ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecode, err)
	}
	log.Debug("Read bus", "from", m.From, "kind", m.Kind, "audio", len(m.Audio))
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(ws.TextMessage, data)
}

// Reconnect redials every interval until it succeeds or ctx ends.
func (b *Bus) Reconnect(ctx context.Context, interval time.Duration) error {
	b.current().Close()
	for {
		err := b.dial(ctx)
		if err == nil {
			log.Info("Reconnected to bus", "url", b.url)
			return nil
		}
		log.Warn("Bus reconnect failed", "url", b.url, "err", err)

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (b *Bus) Close() error {
	conn := b.current()
	conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

// IsClosed reports whether err is the peer closing the connection.
func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
