package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/app"
	"github.com/zhouzirui/aria/backend/internal/config"
	"github.com/zhouzirui/aria/backend/internal/handler"
	authservice "github.com/zhouzirui/aria/backend/internal/service/auth"
	"github.com/zhouzirui/aria/backend/internal/store/sqlite"
	pkgauth "github.com/zhouzirui/aria/backend/pkg/auth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Database.Path != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	store := sqlite.NewStore(db)

	signer, err := pkgauth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize token signer (JWT_SECRET 必须配置): %v", err)
	}

	services, err := app.Build(ctx, cfg, store)
	if err != nil {
		log.Fatalf("failed to build response pipeline: %v", err)
	}

	router := handler.NewRouter(handler.Deps{
		Personas: services.Personas,
		Pipeline: services.Orchestrator,
		History:  store,
		Auth:     authservice.NewService(store, signer),
		Tokens:   signer,
		Learner:  services.Classifier,
		Writing:  services.Writing,
		Rewriter: services.Rewriter,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Aria backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
