package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/course-emi/pkg/loans"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		contents   string
		wantError  string
		assertions func(t *testing.T, c *Configuration)
	}{
		{
			name:     "Defaults fill unset keys",
			contents: "output:\n  format: json\n",
			assertions: func(t *testing.T, c *Configuration) {
				if c.Output.Format != "json" {
					t.Errorf("Output.Format = %q", c.Output.Format)
				}
				if c.Plan.TenureMonths != 6 || c.Plan.Policy() != loans.OverflowClamp {
					t.Errorf("Plan = %+v", c.Plan)
				}
				if c.Export.Format != "xlsx" || c.Cache.Backend != CacheNone || c.Storage.Backend != StorageLocal {
					t.Errorf("unexpected defaults: %+v", c)
				}
				if c.Cache.Redis.TTL != 24*time.Hour || c.Storage.S3.URLExpiry != 15*time.Minute {
					t.Errorf("duration defaults = %v, %v", c.Cache.Redis.TTL, c.Storage.S3.URLExpiry)
				}
			},
		},
		{
			name: "Full file",
			contents: `plan:
  tenureMonths: 9
  overflowPolicy: rollover
  timezone: Asia/Kolkata
logging:
  level: debug
  format: console
cache:
  backend: redis
  maxEntries: 10
  redis:
    addr: redis:6379
    ttl: 2h
storage:
  backend: s3
  s3:
    endpoint: minio:9000
    bucket: exports
    useSSL: false
    urlExpiry: 5m
`,
			assertions: func(t *testing.T, c *Configuration) {
				if c.Plan.TenureMonths != 9 || c.Plan.Policy() != loans.OverflowRollover {
					t.Errorf("Plan = %+v", c.Plan)
				}
				loc, err := c.Plan.Location()
				if err != nil || loc.String() != "Asia/Kolkata" {
					t.Errorf("Location() = %v, %v", loc, err)
				}
				if c.Logging.Level != "debug" || c.Logging.Format != "console" {
					t.Errorf("Logging = %+v", c.Logging)
				}
				if c.Cache.Redis.Addr != "redis:6379" || c.Cache.Redis.TTL != 2*time.Hour || c.Cache.MaxEntries != 10 {
					t.Errorf("Cache = %+v", c.Cache)
				}
				if c.Storage.S3.UseSSL || c.Storage.S3.URLExpiry != 5*time.Minute || c.Storage.S3.Bucket != "exports" {
					t.Errorf("Storage.S3 = %+v", c.Storage.S3)
				}
			},
		},
		{
			name:      "Unsupported tenure",
			contents:  "plan:\n  tenureMonths: 12\n",
			wantError: "plan.tenureMonths",
		},
		{
			name:      "Unknown overflow policy",
			contents:  "plan:\n  overflowPolicy: wrap\n",
			wantError: "plan.overflowPolicy",
		},
		{
			name:      "Unknown cache backend",
			contents:  "cache:\n  backend: memcached\n",
			wantError: "cache.backend",
		},
		{
			name:      "S3 without bucket",
			contents:  "storage:\n  backend: s3\n  s3:\n    endpoint: minio:9000\n",
			wantError: "storage.s3.bucket",
		},
		{
			name:      "Unsupported export format",
			contents:  "export:\n  format: docx\n",
			wantError: "export.format",
		},
		{
			name:      "Bad output format",
			contents:  "output:\n  format: xml\n",
			wantError: "output.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadConfiguration(writeConfig(t, tt.contents))
			if tt.wantError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("LoadConfiguration() error = %v, expected mention of %s", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			tt.assertions(t, c)
		})
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "nonexistent.yaml")); err == nil {
		t.Error("LoadConfiguration() expected error but got none")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("COURSE_EMI_CACHE_BACKEND", "memory")
	t.Setenv("COURSE_EMI_PLAN_OVERFLOWPOLICY", "rollover")
	t.Setenv("COURSE_EMI_STORAGE_LOCAL_RETENTION", "30m")

	c, err := LoadConfiguration(writeConfig(t, "cache:\n  backend: none\n"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if c.Cache.Backend != CacheMemory {
		t.Errorf("Cache.Backend = %q, expected env override", c.Cache.Backend)
	}
	if c.Plan.Policy() != loans.OverflowRollover {
		t.Errorf("Plan.OverflowPolicy = %q", c.Plan.OverflowPolicy)
	}
	if c.Storage.Local.Retention != 30*time.Minute {
		t.Errorf("Storage.Local.Retention = %v", c.Storage.Local.Retention)
	}

	d, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if d.Cache.Backend != CacheMemory {
		t.Errorf("Default() ignored env override: %q", d.Cache.Backend)
	}
}

func TestPlanConfigPolicyFallsBack(t *testing.T) {
	if got := (PlanConfig{OverflowPolicy: "bogus"}).Policy(); got != loans.OverflowClamp {
		t.Errorf("Policy() = %q, expected clamp", got)
	}
	if loc, err := (PlanConfig{}).Location(); err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}
