package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airvoice/internal/config"
	"airvoice/internal/ingest"
	"airvoice/internal/logger"
	"airvoice/internal/pipeline"
	"airvoice/internal/portal"
	"airvoice/internal/registry"
	"airvoice/internal/server"
	"airvoice/internal/storage"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("config load failed", "error", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalw("database open failed", "error", err, "path", cfg.DBPath)
	}
	defer db.Close()

	source := portal.NewSimulated(cfg, portal.StoreMetadata(db))
	srv := server.New(db, ingest.New(db, cfg), registry.New(db), pipeline.NewService(db, source, log), cfg, log)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "addr", cfg.ServerAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorw("shutdown error", "error", err)
	}
}
