package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(testViper(map[string]any{
		"shop":         "example.myshopify.com",
		"access_token": "shpat_123",
	}))
	require.NoError(t, err)

	assert.Equal(t, "example.myshopify.com", cfg.Shop)
	assert.Equal(t, "2023-07", cfg.APIVersion)
	assert.Equal(t, 3340, cfg.Port)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "Omaha Pneumatic Equipment Company", cfg.Locations.Warehouse)
	assert.Equal(t, "Vendor", cfg.Locations.Vendor)
	assert.Equal(t, "custom", cfg.Keys.Namespace)
	assert.Equal(t, "omaha_product_inventory", cfg.Keys.Warehouse)
	assert.Equal(t, "vendor_product_inventory", cfg.Keys.Vendor)
	assert.Equal(t, 500*time.Millisecond, cfg.Pause)
	assert.Equal(t, ":3340", cfg.HTTPAddr())
	assert.Empty(t, cfg.MySQLDSN)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromViper_MissingCredentials(t *testing.T) {
	_, err := fromViper(testViper(nil))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "SHOP is required")
	assert.ErrorContains(t, err, "ACCESS_TOKEN is required")
}

func TestFromViper_SameLocations(t *testing.T) {
	_, err := fromViper(testViper(map[string]any{
		"shop":               "example.myshopify.com",
		"access_token":       "shpat_123",
		"warehouse_location": "Vendor",
	}))
	assert.ErrorContains(t, err, "locations must differ")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SHOP", "env-shop.myshopify.com")
	t.Setenv("ACCESS_TOKEN", "shpat_env")
	t.Setenv("PORT", "8081")
	t.Setenv("RECONCILE_PAUSE", "250ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-shop.myshopify.com", cfg.Shop)
	assert.Equal(t, "shpat_env", cfg.AccessToken)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Pause)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestFromViper_LockTTLTooShort(t *testing.T) {
	_, err := fromViper(testViper(map[string]any{
		"shop":            "example.myshopify.com",
		"access_token":    "shpat_123",
		"reconcile_pause": "500ms",
		"http_timeout":    "30s",
		"lock_ttl":        "1s",
	}))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "LOCK_TTL 1s must be at least 2m1s")
}

func TestFromViper_LockTTLCoversProduct(t *testing.T) {
	cfg, err := fromViper(testViper(map[string]any{
		"shop":            "example.myshopify.com",
		"access_token":    "shpat_123",
		"reconcile_pause": "1s",
		"http_timeout":    "5s",
		"lock_ttl":        "22s",
	}))
	require.NoError(t, err)
	assert.Equal(t, 22*time.Second, cfg.MinLockTTL())
	assert.Equal(t, 22*time.Second, cfg.LockTTL)
}

func TestFromViper_EndpointOverride(t *testing.T) {
	cfg, err := fromViper(testViper(map[string]any{
		"shop":             "example.myshopify.com",
		"access_token":     "shpat_123",
		"shopify_endpoint": "http://127.0.0.1:8080/graphql.json",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/graphql.json", cfg.Endpoint)
}
