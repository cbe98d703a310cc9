package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dgallion1/marginalia/internal/api"
	"github.com/dgallion1/marginalia/internal/config"
	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/library"
	"github.com/dgallion1/marginalia/internal/parser"
	"github.com/dgallion1/marginalia/internal/session"
	"github.com/dgallion1/marginalia/internal/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site and the reading-session API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lib, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}
	if err := lib.Load(ctx); err != nil {
		// Bad files are skipped; the rest of the library is still served.
		log.Warn("library loaded with errors", zap.Error(err))
	}
	if err := lib.Start(ctx); err != nil {
		return err
	}
	defer lib.Stop()

	sessions := session.NewStore(session.StoreConfig{
		TTL:                 cfg.SessionTTL,
		MaxSessions:         cfg.MaxSessions,
		CleanupInterval:     cfg.SessionCleanup,
		VisibilityThreshold: cfg.VisibilityThreshold,
	}, log)
	sessions.Start(ctx)
	defer sessions.Stop()

	srv, err := api.NewServer(lib, sessions, stats.NewRecorder(cfg.StatsWindow), log, cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting marginalia", zap.String("port", cfg.Port), zap.Int("essays", len(lib.Essays())))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newLibrary(cfg config.Config, log *zap.Logger) (*library.Library, error) {
	site, err := content.DefaultSite()
	if err != nil {
		return nil, err
	}
	return library.New(site, library.Options{
		ContentDir:     cfg.ContentDir,
		Watch:          cfg.WatchContent,
		Debounce:       cfg.WatchDebounce,
		WordsPerMinute: cfg.WordsPerMinute,
		Concurrency:    cfg.LoadConcurrency,
		Parser:         parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, log), nil
}
