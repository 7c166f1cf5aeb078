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

	"github.com/iwvelando/course-emi/internal/config"
	"github.com/iwvelando/course-emi/internal/export"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/internal/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// runServer serves the plan API until SIGINT or SIGTERM.
func runServer(conf *config.Configuration, serverConfigPath, logLevelOverride string) error {
	serverCfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		return err
	}

	logging := conf.Logging
	if serverCfg.Logging.Level != "" {
		logging.Level = serverCfg.Logging.Level
	}
	if serverCfg.Logging.Format != "" {
		logging.Format = serverCfg.Logging.Format
	}
	if serverCfg.Logging.OutputFile != "" {
		logging.OutputFile = serverCfg.Logging.OutputFile
	}
	logger, err := initializeLogger(logging, logLevelOverride)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.NewRecorder()
	engine, closeCache, err := buildEngine(ctx, logger, conf, recorder)
	if err != nil {
		return err
	}
	defer closeCache()

	sink, files, err := buildSink(conf.Storage)
	if err != nil {
		return err
	}
	exportOpts := []export.ServiceOption{export.WithRecorder(recorder)}
	if sink != nil {
		exportOpts = append(exportOpts, export.WithSink(sink))
	}

	handler := server.NewHandler(logger, serverCfg, server.Dependencies{
		Engine:       engine,
		Exports:      export.NewService(logger, nil, exportOpts...),
		Files:        files,
		Metrics:      recorder,
		ExportFormat: conf.Export.Format,
	}, version)

	srv := &http.Server{
		Addr:         serverCfg.Address,
		Handler:      handler,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("op", "main.runServer"),
			zap.String("address", serverCfg.Address),
			zap.String("storage", conf.Storage.Backend),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	if files != nil && conf.Storage.Local.Retention > 0 {
		go cleanupLoop(ctx, logger, files, serverCfg.CleanupInterval, conf.Storage.Local.Retention)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		return err
	case sig := <-stop:
		logger.Info("shutdown signal received",
			zap.String("op", "main.runServer"),
			zap.String("signal", sig.String()),
		)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}
	cancel()

	logger.Info("shutdown complete", zap.String("op", "main.runServer"))
	return nil
}

// buildSink returns the configured artifact sink. files is set only for the
// local backend, whose artifacts the server itself serves.
func buildSink(cfg config.StorageConfig) (sink export.Sink, files *export.LocalStorage, err error) {
	switch cfg.Backend {
	case config.StorageLocal:
		files, err = export.NewLocalStorage(cfg.Local.Dir, cfg.Local.PublicPrefix, cfg.Local.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("storage init error: %w", err)
		}
		return files, files, nil
	case config.StorageS3:
		s3, err := export.NewS3Storage(export.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			URLExpiry:       cfg.S3.URLExpiry,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("storage init error: %w", err)
		}
		return s3, nil, nil
	}
	return nil, nil, nil
}

// cleanupLoop deletes locally stored artifacts older than retention.
func cleanupLoop(ctx context.Context, logger *zap.Logger, files *export.LocalStorage, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := files.Prune(retention)
			if err != nil {
				logger.Warn("storage cleanup failed",
					zap.String("op", "main.cleanupLoop"),
					zap.Error(err),
				)
			}
			if removed > 0 {
				logger.Debug("pruned stored exports",
					zap.String("op", "main.cleanupLoop"),
					zap.Int("removed", removed),
				)
			}
		}
	}
}
