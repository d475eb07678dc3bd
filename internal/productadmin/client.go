// Package productadmin drives the remote product catalogue API: product
// CRUD, image uploads and reviews.
package productadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const adminService = "product-admin"

// Response is the admin API's JSON envelope. Only the fields the
// storefront reacts to are decoded.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Product *models.Product `json:"product,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HasData reports whether the response carried a non-null data field.
func (r *Response) HasData() bool {
	return r != nil && len(r.Data) > 0 && string(r.Data) != "null"
}

// ImageFile is one file for UploadProductImages.
type ImageFile struct {
	Name    string
	Content io.Reader
}

// Client calls the product admin API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.LoggerV2
}

func NewClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// NewProduct handles POST /api/admin/products
func (c *Client) NewProduct(ctx context.Context, product *models.Product) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, "/api/admin/products", product)
}

// UpdateProduct handles PUT /api/admin/products/:id
func (c *Client) UpdateProduct(ctx context.Context, id string, product *models.Product) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, "/api/admin/products/"+id, product)
}

// DeleteProduct handles DELETE /api/admin/products/:id
func (c *Client) DeleteProduct(ctx context.Context, id string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, "/api/admin/products/"+id, nil, "")
}

// PostReview handles PUT /api/products/review
func (c *Client) PostReview(ctx context.Context, review *models.ReviewRequest) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, "/api/products/review", review)
}

// UploadProductImages posts files as multipart form field "images".
func (c *Client) UploadProductImages(ctx context.Context, id string, files []ImageFile) (*Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	c.logger.Debug("Uploading product images", logging.Fields{
		"product_id": id,
		"files":      len(files),
	})

	return c.do(ctx, http.MethodPost, "/api/admin/products/upload_images/"+id, &body, w.FormDataContentType())
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, bytes.NewReader(body), "application/json")
}

// do returns a nil Response when the API answers 2xx with an empty body.
// Non-2xx answers become an *errors.UpstreamError carrying the API message.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	c.setHeaders(ctx, req, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Product admin request failed", logging.Fields{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return nil, errors.NewUpstreamError(adminService, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.NewUpstreamError(adminService, resp.StatusCode, "read response", err)
	}

	var result *Response
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil && resp.StatusCode < 300 {
			return nil, errors.NewUpstreamError(adminService, resp.StatusCode, "malformed response", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if result != nil {
			msg = result.Message
		}
		c.logger.Warn("Product admin request rejected", logging.Fields{
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
			"message":     msg,
		})
		return nil, errors.NewUpstreamError(adminService, resp.StatusCode, msg, nil)
	}

	return result, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, contentType string) {
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}
