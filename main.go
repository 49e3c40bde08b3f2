package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	oshttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/channel-music/channel/internal/api"
	"github.com/channel-music/channel/internal/commands"
	"github.com/channel-music/channel/internal/config"
	"github.com/channel-music/channel/internal/feed"
	"github.com/channel-music/channel/internal/filestore"
	"github.com/channel-music/channel/internal/http"
	"github.com/channel-music/channel/internal/library"
	"github.com/channel-music/channel/internal/storage"
	"github.com/channel-music/channel/internal/ws"
	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("channel", flag.ContinueOnError)
	prune := fs.Bool("prune", false, "Remove stored files no song refers to (requires a running server)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if *prune {
		return commands.Prune(cfg)
	}

	// The file store never creates its root; the process owns it.
	uploads, err := filepath.Abs(cfg.UploadsPath)
	if err != nil {
		return fmt.Errorf("invalid UPLOADS_PATH: %w", err)
	}
	if err := os.MkdirAll(uploads, 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}

	bbStorage, err := storage.NewBboltStorage(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = bbStorage.Close() }()

	passwordHash, err := api.HashPassword(cfg.AdminPassword, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	hub := ws.NewHub(feed.DefaultMaxEvents)
	lib := library.New(filestore.New(uploads), bbStorage, hub)

	adminServer := http.NewAdminServer(lib, cfg.AdminUser, passwordHash, cfg.AdminAddr)
	apiServer := http.NewAPIServer(lib, hub, http.APIServerConfig{
		Addr:           cfg.APIAddr,
		MaxUploadSize:  cfg.MaxUploadSize,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	slog.Info("channel starting",
		"uploads", uploads,
		"db", cfg.DBFile,
		"max_upload", humanize.Bytes(uint64(cfg.MaxUploadSize)),
	)

	g, gCtx := errgroup.WithContext(ctx)

	// Start Admin Server
	g.Go(func() error {
		err := adminServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	// Start API Server
	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin server shutdown error: %v", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		log.Fatalf("Application error: %v", err)
	}
}
