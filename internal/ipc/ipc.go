// Package ipc is the daemon's control channel: one JSON request and one
// JSON response per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const SocketPath = "/tmp/scribe.sock"

const (
	CmdPing       = "ping"
	CmdTranscribe = "transcribe"
)

type Request struct {
	Cmd    string `json:"cmd"`
	Audio  string `json:"audio,omitempty"`
	Output string `json:"output,omitempty"`
}

type Response struct {
	Outcome string `json:"outcome"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Handler func(context.Context, Request) Response

type Server struct {
	ln      net.Listener
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// StartServer listens on path, replacing a stale socket, and serves every
// connection in its own goroutine until Close. Anything at path that is
// not a socket is left alone and reported as an error.
func StartServer(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = SocketPath
	}
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{ln: ln, handler: handler, ctx: ctx, cancel: cancel, conns: make(map[net.Conn]struct{})}

	s.wg.Add(1)
	go s.acceptLoop()

	log.Info("Control socket listening", "path", path)
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

// track registers conn so Close can unblock its read. A conn accepted
// after Close gets an expired deadline right away.
func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.SetReadDeadline(time.Now())
		return
	}
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		log.Warn("Bad control request", "err", err)
		json.NewEncoder(conn).Encode(Response{Outcome: "error", Error: "bad request: " + err.Error()})
		return
	}

	log.Debug("Control request", "cmd", req.Cmd, "audio", req.Audio, "output", req.Output)
	if err := json.NewEncoder(conn).Encode(s.handler(s.ctx, req)); err != nil {
		log.Warn("Failed to send control response", "err", err)
	}
}

// Close stops accepting, cancels in-flight requests and waits for them.
// Clients that connected but never sent a request are cut off; requests
// already being handled still get their (cancelled) response.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.cancel()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// Send delivers req to the daemon at path and waits for its response.
func Send(ctx context.Context, path string, req Request) (Response, error) {
	if path == "" {
		path = SocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	} else {
		conn.SetDeadline(time.Time{})
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("receive: %w", err)
	}
	return resp, nil
}
