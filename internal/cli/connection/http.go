package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/valtok-go/internal/infra/buildinfo"
	"github.com/yndnr/valtok-go/internal/server/httpserver/handler"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

// NewHTTPClient creates a new HTTP client. server may omit the scheme.
func NewHTTPClient(server, apiKey string) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("User-Agent", "valtok-cli/"+buildinfo.Version)
}

// GenerateToken calls POST /v1/tokens.
func (c *HTTPClient) GenerateToken(ctx context.Context, purpose, resourceID, stamp string) (*handler.GenerateTokenResponse, error) {
	resp, err := c.Post(ctx, "/v1/tokens", handler.GenerateTokenRequest{
		Purpose:       &purpose,
		ResourceID:    &resourceID,
		SecurityStamp: &stamp,
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var out handler.GenerateTokenResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateToken calls POST /v1/tokens/validate.
func (c *HTTPClient) ValidateToken(ctx context.Context, tok, purpose, resourceID, stamp string) (bool, error) {
	resp, err := c.Post(ctx, "/v1/tokens/validate", handler.ValidateTokenRequest{
		Token:         &tok,
		Purpose:       &purpose,
		ResourceID:    &resourceID,
		SecurityStamp: &stamp,
	})
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	var out handler.ValidateTokenResponse
	if err := ParseResponse(resp, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// NewStamp calls POST /v1/stamps.
func (c *HTTPClient) NewStamp(ctx context.Context) (string, error) {
	resp, err := c.Post(ctx, "/v1/stamps", nil)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	var out handler.StampResponse
	if err := ParseResponse(resp, &out); err != nil {
		return "", err
	}
	return out.SecurityStamp, nil
}

// ParseResponse decodes the response envelope and its data into target.
// Error responses become errors carrying the server's code and message.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var envelope struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && envelope.Message != "" {
			return fmt.Errorf("[%s] %s", envelope.Code, envelope.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if target != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
