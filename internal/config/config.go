// Package config reads server settings from flags, falling back to the
// environment, plus an optional YAML delivery zone table.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"

	defaultHTTPAddr  = ":8080"
	defaultGRPCAddr  = ":50051"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	defaultRedisAddr = "localhost:6379"
	defaultBucket    = "product-images"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	Storage   string
	MySQLDSN  string
	RedisAddr string

	AuthURL    string
	AuthAPIKey string

	StorageURL    string
	StorageBucket string
	StorageAPIKey string

	ZonesFile string
	LogLevel  string
	Dev       bool

	Delivery []domain.DeliveryOption
}

// Parse reads args (without the program name). getenv supplies the defaults
// of flags that have an environment variable; pass os.Getenv in main.
func Parse(args []string, getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	set := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	set.SetOutput(io.Discard)

	var cfg Config
	set.StringVar(&cfg.HTTPAddr, "http-addr", env("HTTP_ADDR", defaultHTTPAddr), "REST API listen address")
	set.StringVar(&cfg.GRPCAddr, "grpc-addr", env("GRPC_ADDR", defaultGRPCAddr), "gRPC listen address")
	set.StringVar(&cfg.Storage, "storage", env("STORAGE_BACKEND", StorageMySQL), "persistence backend: mysql or memory")
	set.StringVar(&cfg.MySQLDSN, "mysql-dsn", env("MYSQL_DSN", defaultMySQLDSN), "MySQL data source name")
	set.StringVar(&cfg.RedisAddr, "redis-addr", env("REDIS_ADDR", defaultRedisAddr), "Redis address")
	set.StringVar(&cfg.AuthURL, "auth-url", env("AUTH_URL", ""), "base URL of the GoTrue-compatible identity service")
	set.StringVar(&cfg.AuthAPIKey, "auth-api-key", env("AUTH_API_KEY", ""), "API key sent to the identity service")
	set.StringVar(&cfg.StorageURL, "storage-url", env("STORAGE_URL", ""), "base URL of the object store")
	set.StringVar(&cfg.StorageBucket, "storage-bucket", env("STORAGE_BUCKET", defaultBucket), "bucket for uploaded images")
	set.StringVar(&cfg.StorageAPIKey, "storage-api-key", env("STORAGE_API_KEY", ""), "object store key, defaults to the identity API key")
	set.StringVar(&cfg.ZonesFile, "zones-file", env("ZONES_FILE", ""), "YAML file overriding the delivery zone table")
	set.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	set.BoolVar(&cfg.Dev, "dev", false, "human readable development logging")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.StorageAPIKey == "" {
		cfg.StorageAPIKey = cfg.AuthAPIKey
	}

	cfg.Delivery = domain.DefaultDeliveryOptions()
	if cfg.ZonesFile != "" {
		options, err := LoadZones(cfg.ZonesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Delivery = options
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []string
	if c.Storage != StorageMySQL && c.Storage != StorageMemory {
		problems = append(problems, fmt.Sprintf("unknown storage %q", c.Storage))
	}
	if c.AuthURL == "" {
		problems = append(problems, "auth url is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

type zoneFile struct {
	Zones []struct {
		Zone   string `yaml:"zone"`
		Label  string `yaml:"label"`
		Charge string `yaml:"charge"`
	} `yaml:"zones"`
}

// LoadZones reads a delivery zone table:
//
//	zones:
//	  - zone: local
//	    label: Within the city
//	    charge: 50
func LoadZones(path string) ([]domain.DeliveryOption, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return ParseZones(raw)
}

func ParseZones(raw []byte) ([]domain.DeliveryOption, error) {
	var file zoneFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse zones file: %w", err)
	}
	if len(file.Zones) == 0 {
		return nil, errors.New("parse zones file: no zones")
	}

	options := make([]domain.DeliveryOption, 0, len(file.Zones))
	for _, z := range file.Zones {
		charge, err := decimal.NewFromString(z.Charge)
		if err != nil {
			return nil, fmt.Errorf("parse zones file: zone %q: bad charge %q", z.Zone, z.Charge)
		}
		options = append(options, domain.DeliveryOption{
			Zone:   domain.Zone(z.Zone),
			Label:  z.Label,
			Charge: charge,
		})
	}
	return options, nil
}
