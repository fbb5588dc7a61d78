package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsResponse = `{
  "data": {
    "products": {
      "edges": [{
        "node": {
          "id": "gid://shopify/Product/1",
          "title": "Air Compressor",
          "variants": {"edges": [{"node": {
            "id": "gid://shopify/ProductVariant/11",
            "inventoryItem": {"id": "gid://shopify/InventoryItem/111", "inventoryLevels": {"edges": [
              {"node": {"location": {"id": "gid://shopify/Location/1", "name": "Omaha Pneumatic Equipment Company"}, "available": 4}},
              {"node": {"location": {"id": "gid://shopify/Location/2", "name": "Vendor"}, "available": 0}}
            ]}}
          }}]}
        }
      }],
      "pageInfo": {"hasNextPage": false, "endCursor": "c1"}
    }
  }
}`

const metafieldsResponse = `{
  "data": {
    "product": {
      "metafields": {"edges": [
        {"node": {"namespace": "custom", "key": "omaha_product_inventory", "value": "1", "type": "number_integer"}}
      ]}
    }
  }
}`

func newShop(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var writes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}

		var req struct {
			Query string `json:"query"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(req.Query, "metafieldsSet"):
			writes.Add(1)
			w.Write([]byte(`{"data":{"metafieldsSet":{"metafields":[],"userErrors":[]}}}`))
		case strings.Contains(req.Query, "products("):
			w.Write([]byte(productsResponse))
		default:
			w.Write([]byte(metafieldsResponse))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &writes
}

func setEnv(t *testing.T, endpoint string) {
	t.Setenv("SHOP", "example.myshopify.com")
	t.Setenv("ACCESS_TOKEN", "shpat_test")
	t.Setenv("SHOPIFY_ENDPOINT", endpoint)
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRootCmd_DryRun(t *testing.T) {
	srv, writes := newShop(t, http.StatusOK)
	setEnv(t, srv.URL)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--dry-run", "--pause", "0s"})

	require.NoError(t, cmd.Execute())

	assert.Regexp(t, `^run [0-9a-f-]{36} succeeded: 1 pages, 1 products, 1 updated, 0 unchanged\n$`, out.String())
	assert.Zero(t, writes.Load(), "dry run must not write metafields")
}

func TestRootCmd_UpstreamFailure(t *testing.T) {
	srv, _ := newShop(t, http.StatusServiceUnavailable)
	setEnv(t, srv.URL)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--pause", "0s"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.NotContains(t, out.String(), "succeeded")
}

func TestRootCmd_MissingCredentials(t *testing.T) {
	setEnv(t, "")
	t.Setenv("ACCESS_TOKEN", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	assert.ErrorContains(t, cmd.Execute(), "ACCESS_TOKEN is required")
}
