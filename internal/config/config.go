// Package config defines the application configuration and loads it from a
// YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/loans"
	"github.com/iwvelando/course-emi/pkg/validation"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Storage backends.
const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Configuration holds all configuration for course-emi.
type Configuration struct {
	Plan    PlanConfig    `mapstructure:"plan" yaml:"plan,omitempty"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging,omitempty"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output,omitempty"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export,omitempty"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache,omitempty"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage,omitempty"`
}

// PlanConfig holds plan computation defaults.
type PlanConfig struct {
	TenureMonths   int    `mapstructure:"tenureMonths" yaml:"tenureMonths,omitempty"`
	OverflowPolicy string `mapstructure:"overflowPolicy" yaml:"overflowPolicy,omitempty"` // clamp, rollover
	Timezone       string `mapstructure:"timezone" yaml:"timezone,omitempty"`             // IANA name used for "today"
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, json
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // xlsx, csv
	Dir    string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// CacheConfig selects the plan memoization backend.
type CacheConfig struct {
	Backend    string      `mapstructure:"backend" yaml:"backend,omitempty"`
	MaxEntries int         `mapstructure:"maxEntries" yaml:"maxEntries,omitempty"`
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis,omitempty"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	DB       int           `mapstructure:"db" yaml:"db,omitempty"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix,omitempty"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// StorageConfig selects where published exports are kept.
type StorageConfig struct {
	Backend string             `mapstructure:"backend" yaml:"backend,omitempty"`
	Local   LocalStorageConfig `mapstructure:"local" yaml:"local,omitempty"`
	S3      S3StorageConfig    `mapstructure:"s3" yaml:"s3,omitempty"`
}

// LocalStorageConfig configures the on-disk artifact store.
type LocalStorageConfig struct {
	Dir          string        `mapstructure:"dir" yaml:"dir,omitempty"`
	PublicPrefix string        `mapstructure:"publicPrefix" yaml:"publicPrefix,omitempty"`
	BaseURL      string        `mapstructure:"baseURL" yaml:"baseURL,omitempty"`
	Retention    time.Duration `mapstructure:"retention" yaml:"retention,omitempty"`
}

// S3StorageConfig configures the S3 artifact store.
type S3StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string        `mapstructure:"accessKeyID" yaml:"accessKeyID,omitempty"`
	SecretAccessKey string        `mapstructure:"secretAccessKey" yaml:"secretAccessKey,omitempty"`
	Bucket          string        `mapstructure:"bucket" yaml:"bucket,omitempty"`
	UseSSL          bool          `mapstructure:"useSSL" yaml:"useSSL,omitempty"`
	Region          string        `mapstructure:"region" yaml:"region,omitempty"`
	Prefix          string        `mapstructure:"prefix" yaml:"prefix,omitempty"`
	URLExpiry       time.Duration `mapstructure:"urlExpiry" yaml:"urlExpiry,omitempty"`
}

var defaults = map[string]any{
	"plan.tenureMonths":          constants.DefaultTenureMonths,
	"plan.overflowPolicy":        string(loans.OverflowClamp),
	"plan.timezone":              "",
	"logging.level":              "",
	"logging.format":             "",
	"logging.outputFile":         "",
	"output.format":              constants.OutputFormatPretty,
	"export.format":              constants.ExportFormatXLSX,
	"export.dir":                 ".",
	"cache.backend":              CacheNone,
	"cache.maxEntries":           1024,
	"cache.redis.addr":           "localhost:6379",
	"cache.redis.password":       "",
	"cache.redis.db":             0,
	"cache.redis.prefix":         "",
	"cache.redis.ttl":            24 * time.Hour,
	"storage.backend":            StorageLocal,
	"storage.local.dir":          constants.DefaultExportDir,
	"storage.local.publicPrefix": constants.DefaultFilesPrefix,
	"storage.local.baseURL":      "",
	"storage.local.retention":    24 * time.Hour,
	"storage.s3.endpoint":        "",
	"storage.s3.accessKeyID":     "",
	"storage.s3.secretAccessKey": "",
	"storage.s3.bucket":          "",
	"storage.s3.useSSL":          true,
	"storage.s3.region":          "",
	"storage.s3.prefix":          "",
	"storage.s3.urlExpiry":       15 * time.Minute,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration built from defaults and environment
// overrides alone.
func Default() (*Configuration, error) {
	return decode(newViper())
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with COURSE_EMI_
// override file values, e.g. COURSE_EMI_CACHE_BACKEND=redis.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate checks every enumerated value and the settings each selected
// backend needs.
func (c *Configuration) Validate() error {
	var errs []error

	if _, err := validation.ValidateTenure(c.Plan.TenureMonths); err != nil {
		errs = append(errs, fmt.Errorf("plan.tenureMonths: %w", err))
	}
	if _, err := loans.ParseOverflowPolicy(c.Plan.OverflowPolicy); err != nil {
		errs = append(errs, fmt.Errorf("plan.overflowPolicy: %w", err))
	}
	if _, err := c.Plan.Location(); err != nil {
		errs = append(errs, fmt.Errorf("plan.timezone: %w", err))
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			errs = append(errs, fmt.Errorf("output.format: %w", err))
		}
	}
	if err := validation.ValidateExportFormat(c.Export.Format); err != nil {
		errs = append(errs, fmt.Errorf("export.format: %w", err))
	}

	switch c.Cache.Backend {
	case "", CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr must be set for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}

	switch c.Storage.Backend {
	case "", StorageNone, StorageLocal:
	case StorageS3:
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.endpoint and storage.s3.bucket must be set for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// Location resolves the configured timezone. Empty means time.Local.
func (p PlanConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// Policy returns the parsed overflow policy.
func (p PlanConfig) Policy() loans.OverflowPolicy {
	policy, err := loans.ParseOverflowPolicy(p.OverflowPolicy)
	if err != nil {
		return loans.OverflowClamp
	}
	return policy
}
