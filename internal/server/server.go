package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxHeaderBytes    = 64 * 1024
	defaultReadHeaderTimeout = 2 * time.Second
	defaultIdleTimeout       = 30 * time.Second
)

type Limits struct {
	MaxHeaderBytes    int
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

type Server struct {
	Addr string

	httpServer *http.Server
	listener   net.Listener
}

// Start binds the listener and serves in the background. The returned Addr is
// the bound address, useful when addr requested an ephemeral port.
func Start(handler http.Handler, addr string, limits Limits) (*Server, error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}
	if limits.MaxHeaderBytes == 0 {
		limits = DefaultLimits()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    limits.MaxHeaderBytes,
		ReadHeaderTimeout: limits.ReadHeaderTimeout,
		ReadTimeout:       limits.ReadTimeout,
		WriteTimeout:      limits.WriteTimeout,
		IdleTimeout:       limits.IdleTimeout,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("serve error: %v", err)
		}
	}()

	return &Server{Addr: ln.Addr().String(), httpServer: srv, listener: ln}, nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
