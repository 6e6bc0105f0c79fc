package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/notes/internal/database"
	"github.com/dukerupert/notes/internal/server"
)

const cleanupInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		srv, err := server.New(db, server.Config{
			SessionTTL:    cfg.SessionTTL,
			SecureCookies: cfg.SecureCookies,
			AuthRateLimit: cfg.AuthRateLimit,
			TrustProxy:    cfg.TrustProxy,
		}, logger)
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go runCleanup(ctx, srv)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("notes starting", "addr", cfg.Addr, "db", cfg.DBPath)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

// runCleanup purges expired sessions and stale rate-limit windows until ctx is done.
func runCleanup(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("cleanup expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("cleaned up expired sessions", "count", n)
			}
			srv.RateLimiter().Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
