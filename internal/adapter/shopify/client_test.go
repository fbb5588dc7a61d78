package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Token     string
	Query     string
	Variables map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []capturedRequest
	respond  func(req capturedRequest) (int, string)
}

func newFakeAPI(t *testing.T, respond func(req capturedRequest) (int, string)) (*fakeAPI, *Client) {
	t.Helper()

	api := &fakeAPI{respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body graphQLRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		req := capturedRequest{
			Token:     r.Header.Get(accessTokenHeader),
			Query:     body.Query,
			Variables: body.Variables,
		}
		api.mu.Lock()
		api.requests = append(api.requests, req)
		api.mu.Unlock()

		status, payload := api.respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	return api, NewClient(srv.URL, "shpat_test", srv.Client(), nil)
}

func TestAdminEndpoint(t *testing.T) {
	assert.Equal(t,
		"https://example.myshopify.com/admin/api/2023-07/graphql.json",
		AdminEndpoint("example.myshopify.com", DefaultAPIVersion))
}

func TestClientDo_SendsTokenAndVariables(t *testing.T) {
	api, client := newFakeAPI(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `{"data":{"shop":{"name":"Omaha"}}}`
	})

	var out struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	err := client.Do(context.Background(), "query { shop { name } }", map[string]any{"x": "y"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Omaha", out.Shop.Name)
	require.Len(t, api.requests, 1)
	assert.Equal(t, "shpat_test", api.requests[0].Token)
	assert.Equal(t, "y", api.requests[0].Variables["x"])
}

func TestClientDo_GraphQLErrors(t *testing.T) {
	_, client := newFakeAPI(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `{"errors":[{"message":"Throttled"},{"message":"Field 'x' doesn't exist"}]}`
	})

	err := client.Do(context.Background(), "query { x }", nil, nil)
	require.Error(t, err)

	var gqlErrs GraphQLErrors
	require.True(t, errors.As(err, &gqlErrs))
	assert.Len(t, gqlErrs, 2)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestClientDo_StatusError(t *testing.T) {
	_, client := newFakeAPI(t, func(req capturedRequest) (int, string) {
		return http.StatusUnauthorized, strings.Repeat("x", 2*maxErrorBody)
	})

	err := client.Do(context.Background(), "query { shop { name } }", nil, nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBody)
}

func TestClientDo_MalformedBody(t *testing.T) {
	_, client := newFakeAPI(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `not json`
	})

	err := client.Do(context.Background(), "query { shop { name } }", nil, nil)
	assert.ErrorContains(t, err, "parse response")
}

func TestClientDo_ContextCancelled(t *testing.T) {
	_, client := newFakeAPI(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `{"data":{}}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Do(ctx, "query { shop { name } }", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
