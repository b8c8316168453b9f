package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/party-queue/internal/config"
	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/httpapi"
	"github.com/DoyleJ11/party-queue/internal/hub"
	"github.com/DoyleJ11/party-queue/internal/ingest"
	"github.com/DoyleJ11/party-queue/internal/session"
	"github.com/DoyleJ11/party-queue/internal/store"
	"github.com/DoyleJ11/party-queue/internal/youtube"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type closingStore interface {
	host.Store
	Close() error
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (closingStore, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, sessions are kept in memory only")
		return store.NewMemory(), nil
	}
	pg, err := store.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, multierr.Append(err, pg.Close())
	}
	return pg, nil
}

func chatSource(cfg config.Config, log *zap.Logger) ingest.ChatSource {
	if cfg.YouTubeAPIKey == "" {
		log.Warn("YOUTUBE_API_KEY not set, chat ingestion is disabled")
		return nil
	}
	return youtube.New(cfg.YouTubeAPIKey, youtube.WithBaseURL(cfg.YouTubeBaseURL))
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) (err error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	ingestOpts := ingest.Options{
		MinPollInterval: cfg.MinPollInterval,
		DefaultKeyword:  cfg.DefaultKeyword,
	}
	factory := hub.SessionFactory{
		Store:    st,
		Source:   chatSource(cfg, log),
		Defaults: cfg.DefaultSettings(),
		Session:  session.Options{PersistTimeout: cfg.PersistTimeout, Ingest: ingestOpts},
		Log:      log,
	}
	h := hub.NewHub(context.Background(), factory, log.Named("hub"))

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.SetupRoutes(h, log.Named("http"))}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(shutdownCtx), h.Shutdown(shutdownCtx))
	})
	return g.Wait()
}
