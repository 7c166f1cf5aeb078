package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/course-emi/internal/config"
	"github.com/iwvelando/course-emi/internal/export"
	"github.com/iwvelando/course-emi/internal/plan"
	"go.uber.org/zap"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		override string
		wantErr  bool
	}{
		{"Defaults", config.LoggingConfig{}, "", false},
		{"Console debug", config.LoggingConfig{Level: "debug", Format: "console"}, "", false},
		{"Override wins", config.LoggingConfig{Level: "bogus"}, "warn", false},
		{"Invalid level", config.LoggingConfig{Level: "verbose"}, "", true},
		{"Invalid format", config.LoggingConfig{Format: "xml"}, "", true},
		{"Output file", config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "emi.log")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.cfg, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error: %v", err)
			}
			_ = logger.Sync()
		})
	}
}

func TestLoadConfigurationMissingFileUsesDefaults(t *testing.T) {
	conf, err := loadConfiguration(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadConfiguration() error: %v", err)
	}
	if conf.Plan.TenureMonths != 6 || conf.Export.Format != "xlsx" {
		t.Fatalf("unexpected defaults: %+v", conf)
	}
}

func TestBuildEngineMemoryCache(t *testing.T) {
	conf, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error: %v", err)
	}
	conf.Cache.Backend = config.CacheMemory
	conf.Plan.Timezone = "UTC"

	engine, closeFn, err := buildEngine(context.Background(), zap.NewNop(), conf, nil)
	if err != nil {
		t.Fatalf("buildEngine() error: %v", err)
	}
	defer closeFn()

	fee, down := int64(60000), int64(10000)
	result, err := engine.Compute(context.Background(), plan.LoanInputs{TotalFee: &fee, DownPayment: &down, TenureMonths: 6})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if result.Plan.RoundedInstallment != 8333 {
		t.Fatalf("expected 8333, got %d", result.Plan.RoundedInstallment)
	}
}

func TestBuildSink(t *testing.T) {
	sink, files, err := buildSink(config.StorageConfig{Backend: config.StorageNone})
	if err != nil || sink != nil || files != nil {
		t.Fatalf("expected no sink, got %v %v %v", sink, files, err)
	}

	dir := filepath.Join(t.TempDir(), "exports")
	sink, files, err = buildSink(config.StorageConfig{
		Backend: config.StorageLocal,
		Local:   config.LocalStorageConfig{Dir: dir, PublicPrefix: "/files"},
	})
	if err != nil {
		t.Fatalf("buildSink(local) error: %v", err)
	}
	if sink == nil || files == nil || files.BaseDir != dir {
		t.Fatalf("expected local sink in %s, got %+v", dir, files)
	}

	if _, _, err := buildSink(config.StorageConfig{Backend: config.StorageS3}); err == nil {
		t.Fatal("expected error for s3 without a bucket")
	}
}

func TestWriteExport(t *testing.T) {
	fee, down := int64(60000), int64(10000)
	engine := plan.NewEngine(nil)
	result, err := engine.Compute(context.Background(), plan.LoanInputs{TotalFee: &fee, DownPayment: &down, TenureMonths: 6})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	path, err := writeExport(context.Background(), export.NewService(nil, nil), result, "csv", dir)
	if err != nil {
		t.Fatalf("writeExport() error: %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".csv" {
		t.Fatalf("unexpected export path %s", path)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("export not written: %v", err)
	}

	if _, err := writeExport(context.Background(), export.NewService(nil, nil), result, "docx", dir); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
