package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/star/darksky/internal/api"
	"github.com/star/darksky/internal/auth"
	"github.com/star/darksky/internal/stream"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API",
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(api.Config{
		Addr:       a.cfg.HTTP.Addr,
		TrustProxy: a.cfg.HTTP.TrustProxy,
		Auth:       auth.Config{Enabled: a.cfg.Auth.Enabled, Token: a.cfg.Auth.Token},
		Stream: stream.Config{
			MaxConcurrentPerIP: a.cfg.Stream.MaxPerIP,
			MaxConcurrent:      a.cfg.Stream.MaxTotal,
			KeepaliveInterval:  a.cfg.Stream.Keepalive,
		},
	}, a.logger, a.planner, a.probes)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", "addr", a.cfg.HTTP.Addr, "auth_enabled", a.cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
