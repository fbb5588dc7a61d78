package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAPIVersion = "2023-07"
	accessTokenHeader = "X-Shopify-Access-Token"
	maxErrorBody      = 1024
)

// AdminEndpoint returns the Admin GraphQL URL of a shop, e.g. example.myshopify.com.
func AdminEndpoint(shop, version string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, version)
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLErrors is the errors list of a response. The API reports these with
// status 200, so they are checked separately from StatusError.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "GraphQL errors: " + strings.Join(msgs, "; ")
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors,omitempty"`
}

// Client calls the Admin GraphQL API of one shop.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(endpoint, token string, httpClient *http.Client, logger *zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do sends query with variables and decodes the data object into out.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Int("bytes", len(respBody)).
		Msg("graphql request")

	if resp.StatusCode != http.StatusOK {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return gqlResp.Errors
	}
	if out == nil || len(gqlResp.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
