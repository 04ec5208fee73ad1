package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/regform/regform/internal/api"
	"github.com/regform/regform/internal/careers"
	"github.com/regform/regform/internal/config"
	"github.com/regform/regform/internal/flow"
	"github.com/regform/regform/internal/janitor"
	"github.com/regform/regform/internal/registry"
	"github.com/regform/regform/internal/schema"
	"github.com/regform/regform/internal/site"
	"github.com/regform/regform/internal/storage"
	"github.com/regform/regform/internal/submission"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the questionnaire server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// schemaSource picks where page schemas are loaded from. Remote schemas are
// not re-served under /data/, so the returned FS is nil for them.
func schemaSource(cfg config.SchemaConfig) (schema.Loader, fs.FS) {
	if cfg.URL != "" {
		return schema.NewHTTPLoader(cfg.URL, &http.Client{Timeout: 10 * time.Second}), nil
	}
	fsys := schema.Embedded()
	if cfg.Dir != "" {
		fsys = os.DirFS(cfg.Dir)
	}
	return schema.NewFSLoader(fsys), fsys
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "regform version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRegistry(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	loader, schemaFS := schemaSource(cfg.Schema)
	schemas := schema.NewCache(loader)
	if err := schemas.Preload(ctx); err != nil {
		return fmt.Errorf("loading page schemas: %w", err)
	}

	reg := registry.NewClient(cfg.Registry.Endpoint, cfg.Registry.APIKey,
		config.Duration("registry.timeout", cfg.Registry.Timeout, 30*time.Second)).
		WithAttemptLog(store).
		WithLogger(logger)

	deps := api.Deps{
		Store:         store,
		Schemas:       schemas,
		SchemaFS:      schemaFS,
		Flow:          flow.New(schemas, reg, flow.WithLogger(logger)),
		Gate:          submission.NewGate(reg, logger),
		Media:         site.NewDecorator(cfg.Site.EmbedBase),
		AdminToken:    cfg.Server.AdminToken,
		SecureCookies: cfg.Server.Secure(),
		VideoID:       cfg.Site.VideoID,
		Logger:        logger,
	}

	if cfg.Careers.Org != "" {
		priority := careers.DefaultPriority
		if cfg.Careers.PriorityFile != "" {
			if priority, err = careers.LoadPriority(cfg.Careers.PriorityFile); err != nil {
				return err
			}
		}
		board := careers.NewClient(cfg.Careers.BoardsHost, cfg.Careers.Org, 0)
		deps.Careers = careers.NewService(board, priority,
			config.Duration("careers.cache_ttl", cfg.Careers.CacheTTL, 10*time.Minute)).
			WithLogger(logger)
	} else {
		slog.Info("careers page disabled; set careers.org to enable it")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	retention := config.Duration("storage.retention", cfg.Storage.Retention, 720*time.Hour)
	worker := janitor.NewWorker(store, retention, time.Hour)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		slog.Info("regform listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
