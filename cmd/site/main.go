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

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/backend"
	"orlandiv/internal/config"
	"orlandiv/internal/content"
	"orlandiv/internal/database"
	"orlandiv/internal/services"
	"orlandiv/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second // uploads
	idleTimeout     = 60 * time.Second
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.App.Debug {
		log.SetLevel(log.DebugLevel)
	}

	log.Infof("Starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Infof("Environment: debug=%v, port=%s, host=%s, backend=%s", cfg.App.Debug, cfg.App.Port, cfg.App.Host, cfg.Backend.Driver)

	catalog, err := content.Load()
	if err != nil {
		log.Fatalf("Failed to load site content: %v", err)
	}

	b, files, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Errorf("Error closing database: %v", err)
		}
	}()
	b = backend.Instrument(b)

	log.Info("Initializing services...")
	emailSvc := services.NewEmailService(&cfg.Email)
	srv, err := web.New(web.Options{
		Submissions: services.NewSubmissionService(b, catalog, emailSvc, services.UploadPolicy{
			Bucket:            cfg.Backend.StorageBucket,
			MaxBytes:          cfg.Upload.MaxBytes,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		}),
		Admin:          services.NewAdminService(b),
		Health:         services.NewHealthService(b, cfg.App.Name, cfg.App.Version, cfg.Backend.Driver),
		Catalog:        catalog,
		CookieName:     cfg.Auth.CookieName,
		SecureCookie:   cfg.Auth.SecureCookie,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		UploadAccept:   cfg.Upload.AllowedExtensions,
		Files:          files,
	})
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(cfg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server failed to start: %v", err)
	case sig := <-shutdown:
		log.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("Error during graceful shutdown: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Shutdown timeout exceeded, forcing close...")
			httpServer.Close()
		}
	}

	log.Info("Server shutdown complete")
}

// openBackend selects the hosted or local backend. The returned handler
// serves uploaded objects and is nil for the hosted driver.
func openBackend(cfg *config.Config) (backend.Backend, http.Handler, error) {
	switch cfg.Backend.Driver {
	case config.DriverSupabase:
		log.Infof("[BACKEND] Using Supabase project at %s", cfg.Backend.URL)
		return backend.NewSupabase(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout), nil, nil
	case config.DriverLocal:
		if err := database.Init(&cfg.Database); err != nil {
			return nil, nil, err
		}
		local := backend.NewLocal(database.GetDB(), backend.LocalOptions{
			Secret:        cfg.Auth.SecretKey,
			TokenTTL:      cfg.Auth.TokenExpiry(),
			UploadDir:     cfg.Upload.Dir,
			PublicBaseURL: cfg.Backend.PublicBaseURL,
		})
		return local, local.FileHandler(), nil
	}
	return nil, nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
}
