package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/course-emi/internal/cache"
	"github.com/iwvelando/course-emi/internal/config"
	"github.com/iwvelando/course-emi/internal/export"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/output"
	"github.com/iwvelando/course-emi/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// loadConfiguration reads the config file, or falls back to defaults and
// environment overrides when the file does not exist.
func loadConfiguration(path string) (*config.Configuration, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return config.LoadConfiguration(path)
}

func main() {
	_ = godotenv.Load()

	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	totalFee := flag.String("fee", "", "total course fee in whole rupees")
	downPayment := flag.String("down", "", "down payment in whole rupees")
	tenure := flag.Int("tenure", 0, "loan tenure in months (2-9)")
	admission := flag.String("admission", "", "admission date (YYYY-MM-DD)")
	exportFormat := flag.String("export", "", "also write an export document: xlsx, csv, pdf")
	exportDir := flag.String("export-dir", "", "directory export documents are written to")
	serve := flag.Bool("serve", false, "run the HTTP server instead of computing a single plan")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	conf, err := loadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	if *serve {
		if err := runServer(conf, *serverConfigLocation, *logLevel); err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"server failed\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(), zap.String("op", "main"))
	}

	tenureMonths := *tenure
	if tenureMonths == 0 {
		tenureMonths = conf.Plan.TenureMonths
	}
	in, err := plan.FromRaw(plan.RawInputs{
		TotalFee:      *totalFee,
		DownPayment:   *downPayment,
		TenureMonths:  tenureMonths,
		AdmissionDate: *admission,
	})
	if err != nil {
		logger.Fatal("invalid loan inputs",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx := context.Background()
	recorder := metrics.NewRecorder()
	engine, closeCache, err := buildEngine(ctx, logger, conf, recorder)
	if err != nil {
		logger.Fatal("failed to build plan engine",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer closeCache()

	result, err := engine.Compute(ctx, in)
	if err != nil {
		logger.Fatal("failed to compute plan",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := output.Write(os.Stdout, outputFormat, result); err != nil {
		logger.Fatal("failed to write plan",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *exportFormat == "" {
		return
	}
	dir := conf.Export.Dir
	if *exportDir != "" {
		dir = *exportDir
	}
	path, err := writeExport(ctx, export.NewService(logger, nil, export.WithRecorder(recorder)), result, *exportFormat, dir)
	if err != nil {
		logger.Fatal("failed to export plan",
			zap.String("op", "main"),
			zap.String("format", *exportFormat),
			zap.Error(err),
		)
	}
	logger.Info("export written",
		zap.String("op", "main"),
		zap.String("path", path),
	)
}

// buildEngine wires the configured clock, overflow policy and cache into a
// plan engine. The returned func releases the cache connection.
func buildEngine(ctx context.Context, logger *zap.Logger, conf *config.Configuration, recorder *metrics.Recorder) (*plan.Engine, func(), error) {
	loc, err := conf.Plan.Location()
	if err != nil {
		return nil, nil, err
	}

	opts := []plan.Option{
		plan.WithClock(plan.SystemClock{Location: loc}),
		plan.WithOverflowPolicy(conf.Plan.Policy()),
		plan.WithMetrics(recorder),
	}
	closeFn := func() {}

	switch conf.Cache.Backend {
	case config.CacheMemory:
		opts = append(opts, plan.WithCache(cache.NewMemoryCache(conf.Cache.MaxEntries)))
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     conf.Cache.Redis.Addr,
			Password: conf.Cache.Redis.Password,
			DB:       conf.Cache.Redis.DB,
			Prefix:   conf.Cache.Redis.Prefix,
			TTL:      conf.Cache.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, plan.WithCache(rc))
		closeFn = func() {
			_ = rc.Close()
		}
	}

	logger.Debug("plan engine configured",
		zap.String("op", "main.buildEngine"),
		zap.String("cache", conf.Cache.Backend),
		zap.String("overflowPolicy", string(conf.Plan.Policy())),
		zap.String("timezone", loc.String()),
	)
	return plan.NewEngine(logger, opts...), closeFn, nil
}

// writeExport renders result and writes it into dir under its dated name.
func writeExport(ctx context.Context, svc *export.Service, result plan.Result, format, dir string) (string, error) {
	artifact, err := svc.Export(ctx, result, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, artifact.Name)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
