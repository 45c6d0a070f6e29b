// Package proxy routes recognizer traffic through a SOCKS5 proxy.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
)

func NewDialer(socksAddr string) (proxy.ContextDialer, error) {
	if socksAddr == "" {
		return nil, errors.New("empty socks proxy address")
	}
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}
	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks dialer does not support contexts")
	}
	return cd, nil
}

// NewSocksClient returns an http.Client for HTTP based SDKs.
func NewSocksClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	dialer, err := NewDialer(socksAddr)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// GRPCOption returns a client option that dials gRPC SDK connections through the proxy.
func GRPCOption(socksAddr string) (option.ClientOption, error) {
	dialer, err := NewDialer(socksAddr)
	if err != nil {
		return nil, err
	}
	return option.WithGRPCDialOption(grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", addr)
	})), nil
}
