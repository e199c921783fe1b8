package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultCatalogTimeout = 5 * time.Second
	defaultMaxBodyBytes   = 8 << 20
	maxErrorBody          = 512
)

type CatalogClientConfig struct {
	BaseURL      string // e.g. "http://localhost:5000/api"
	Timeout      time.Duration
	MaxBodyBytes int64
}

type catalogClient struct {
	baseURL      string
	maxBodyBytes int64
	httpClient   *http.Client
}

// NewCatalogClient returns a client for the storefront backend's product
// endpoints.
func NewCatalogClient(cfg CatalogClientConfig, httpClient *http.Client) (repository.ProductCatalog, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is not configured")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base URL %q: %w", cfg.BaseURL, err)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultCatalogTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &catalogClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxBodyBytes: maxBody,
		httpClient:   httpClient,
	}, nil
}

func (c *catalogClient) ListProducts(ctx context.Context) ([]entity.Product, error) {
	body, err := c.get(ctx, "/products")
	if err != nil {
		return nil, err
	}

	var products []entity.Product
	if err := decodeData(body, &products); err != nil {
		return nil, fmt.Errorf("failed to decode product list: %w", err)
	}
	return products, nil
}

func (c *catalogClient) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	body, err := c.get(ctx, "/products/"+url.PathEscape(productID))
	if err != nil {
		return nil, err
	}

	var product entity.Product
	if err := decodeData(body, &product); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", productID, err)
	}
	if product.ID == "" {
		return nil, repository.ErrNotFound
	}
	return &product, nil
}

func (c *catalogClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", repository.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading GET %s: %v", repository.ErrUpstream, path, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: GET %s response exceeds %d bytes", repository.ErrUpstream, path, c.maxBodyBytes)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, repository.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: GET %s returned %d: %s", repository.ErrUpstream, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}

// decodeData accepts both {"data": ...} envelopes and bare payloads.
func decodeData(body []byte, v interface{}) error {
	var envelope struct {
		Data jsoniter.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			return json.Unmarshal(envelope.Data, v)
		}
	}
	return json.Unmarshal(trimmed, v)
}
