package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CreateServer creates an HTTP server with production timeouts.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := CreateServer(s.cfg.Address(), s.Routes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Server waiting for clients", zap.String("address", httpServer.Addr))
		err := httpServer.ListenAndServe()
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			return nil
		case errors.Is(err, syscall.EADDRINUSE):
			return fmt.Errorf("server already in use on %s: %w", httpServer.Addr, err)
		default:
			return fmt.Errorf("http server: %w", err)
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown(httpServer)
	})
	return g.Wait()
}

func (s *Server) shutdown(httpServer *http.Server) error {
	s.log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var httpErr error
	if err := httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("HTTP server shutdown error", zap.Error(err))
		httpErr = err
	}
	return errors.Join(httpErr, s.Close(s.cfg.ShutdownTimeout))
}

// Close disconnects every session and waits for their goroutines to finish,
// or returns context.DeadlineExceeded once timeout is reached.
func (s *Server) Close(timeout time.Duration) error {
	closed := s.registry.CloseAll()
	s.closeConns()
	s.log.Info("Closed client connections", zap.Int("sessions", closed))

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		s.log.Warn("Shutdown timeout reached, some connections may still be open")
		return context.DeadlineExceeded
	}
}
