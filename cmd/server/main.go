package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	agrisaarthi "github.com/MegaGrindStone/agrisaarthi-web"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/handlers"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/services"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/session"
	"golang.org/x/sync/errgroup"
)

const sessionPruneInterval = 10 * time.Minute

func main() {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}

	cfg, err := loadConfig(filepath.Join(cfgDir, "agrisaarthi", "config.yaml"))
	if err != nil {
		log.Fatal(err)
	}

	level, _ := cfg.level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	api, err := services.NewAgriAPI(cfg.APIURL, logger)
	if err != nil {
		log.Fatal(err)
	}

	registry := session.NewRegistry(api, cfg.DefaultCategory, cfg.Language, logger)

	m, err := handlers.NewMain(api, registry, services.NewMarkdown(), cfg.VoiceURL, logger)
	if err != nil {
		log.Fatal(err)
	}

	staticFS, err := fs.Sub(agrisaarthi.StaticFS, "static")
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(m, staticFS),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", slog.String("addr", srv.Addr), slog.String("apiURL", cfg.APIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return registry.PruneEvery(ctx, sessionPruneInterval, cfg.SessionTTL)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Start shutdown")

		// Create context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				return fmt.Errorf("forcing server close: %w", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
