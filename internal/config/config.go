// Package config loads the service configuration once at startup from the
// process environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is immutable after Load; pass it by value.
type Config struct {
	Shop        string
	AccessToken string
	APIVersion  string
	// Endpoint overrides the Admin GraphQL URL derived from Shop and APIVersion.
	Endpoint string

	Port     int
	GRPCPort int

	Locations domain.Locations
	Keys      domain.MetafieldKeys

	Pause       time.Duration
	HTTPTimeout time.Duration
	LockTTL     time.Duration

	MySQLDSN  string
	RedisAddr string

	LogLevel  string
	LogFormat string
}

// Load reads .env and .env.local (without overriding the environment) and
// builds a validated Config.
func Load() (Config, error) {
	for _, file := range []string{".env", ".env.local"} {
		_ = godotenv.Load(file)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shopify_api_version", "2023-07")
	v.SetDefault("port", 3340)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("warehouse_location", "Omaha Pneumatic Equipment Company")
	v.SetDefault("vendor_location", "Vendor")
	v.SetDefault("metafield_namespace", domain.DefaultNamespace)
	v.SetDefault("warehouse_metafield_key", domain.DefaultWarehouseKey)
	v.SetDefault("vendor_metafield_key", domain.DefaultVendorKey)
	v.SetDefault("reconcile_pause", 500*time.Millisecond)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("lock_ttl", 10*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
}

func fromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		Shop:        v.GetString("shop"),
		AccessToken: v.GetString("access_token"),
		APIVersion:  v.GetString("shopify_api_version"),
		Endpoint:    v.GetString("shopify_endpoint"),
		Port:        v.GetInt("port"),
		GRPCPort:    v.GetInt("grpc_port"),
		Locations: domain.Locations{
			Warehouse: v.GetString("warehouse_location"),
			Vendor:    v.GetString("vendor_location"),
		},
		Keys: domain.MetafieldKeys{
			Namespace: v.GetString("metafield_namespace"),
			Warehouse: v.GetString("warehouse_metafield_key"),
			Vendor:    v.GetString("vendor_metafield_key"),
		},
		Pause:       v.GetDuration("reconcile_pause"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		LockTTL:     v.GetDuration("lock_ttl"),
		MySQLDSN:    v.GetString("mysql_dsn"),
		RedisAddr:   v.GetString("redis_addr"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Shop == "" {
		errs = append(errs, errors.New("SHOP is required"))
	}
	if c.AccessToken == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN is required"))
	}
	if c.Locations.Warehouse == "" || c.Locations.Vendor == "" {
		errs = append(errs, errors.New("warehouse and vendor locations must be set"))
	} else if c.Locations.Warehouse == c.Locations.Vendor {
		errs = append(errs, errors.New("warehouse and vendor locations must differ"))
	}
	if c.Keys.Namespace == "" || c.Keys.Warehouse == "" || c.Keys.Vendor == "" {
		errs = append(errs, errors.New("metafield namespace and keys must be set"))
	} else if c.Keys.Warehouse == c.Keys.Vendor {
		errs = append(errs, errors.New("warehouse and vendor metafield keys must differ"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.Pause < 0 {
		errs = append(errs, errors.New("RECONCILE_PAUSE must not be negative"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	// The lock is renewed once per product; it must outlive a product's
	// metafield read and write plus the pause, with room to spare.
	if minTTL := c.MinLockTTL(); c.LockTTL < minTTL {
		errs = append(errs, fmt.Errorf("LOCK_TTL %s must be at least %s", c.LockTTL, minTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// MinLockTTL is twice the longest time a single product can take.
func (c Config) MinLockTTL() time.Duration {
	return 2 * (c.Pause + 2*c.HTTPTimeout)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
