package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const paystackService = "paystack"

// SignatureHeader carries the HMAC of a webhook body.
const SignatureHeader = "x-paystack-signature"

// PaymentGateway is the subset of Paystack the storefront depends on.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req *models.InitializeTransactionRequest) (*models.InitializeTransactionResponse, error)
	VerifySignature(payload []byte, signature string) bool
}

var _ PaymentGateway = (*PaystackClient)(nil)

// PaystackClient talks to the Paystack REST API.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*models.InitializeTransactionResponse]
	logger     *logging.LoggerV2
}

// NewPaystackClient creates a Paystack client with tracing and a circuit breaker.
func NewPaystackClient(cfg config.PaystackConfig, logger *logging.LoggerV2) *PaystackClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &PaystackClient{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*models.InitializeTransactionResponse](gobreaker.Settings{
		Name:        "paystack-initialize",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejections of our own input say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if ue, ok := errors.AsUpstreamError(err); ok {
				return ue.StatusCode >= 400 && ue.StatusCode < 500
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", logging.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return c
}

// InitializeTransaction creates a hosted payment page for the request.
func (c *PaystackClient) InitializeTransaction(ctx context.Context, req *models.InitializeTransactionRequest) (*models.InitializeTransactionResponse, error) {
	c.logger.Debug("Initializing transaction", logging.Fields{
		"amount":     req.Amount,
		"line_items": len(req.Metadata.LineItems),
	})

	result, err := c.breaker.Execute(func() (*models.InitializeTransactionResponse, error) {
		return c.initialize(ctx, req)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.GatewayRequests.WithLabelValues("initialize", "breaker_open").Inc()
			return nil, errors.NewUpstreamError(paystackService, 0, "payment gateway temporarily unavailable", err)
		}
		metrics.GatewayRequests.WithLabelValues("initialize", "error").Inc()
		return nil, err
	}

	metrics.GatewayRequests.WithLabelValues("initialize", "ok").Inc()
	c.logger.Info("Transaction initialized", logging.Fields{
		"reference": result.Data.Reference,
	})
	return result, nil
}

func (c *PaystackClient) initialize(ctx context.Context, req *models.InitializeTransactionRequest) (*models.InitializeTransactionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/transaction/initialize", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.setHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Initialize request failed", logging.Fields{"error": err.Error()})
		return nil, errors.NewUpstreamError(paystackService, 0, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewUpstreamError(paystackService, resp.StatusCode, "read response", err)
	}

	var result models.InitializeTransactionResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Error("Initialize request returned error", logging.Fields{
			"status_code": resp.StatusCode,
			"message":     msg,
		})
		return nil, errors.NewUpstreamError(paystackService, resp.StatusCode, msg, nil)
	}
	if decodeErr != nil {
		return nil, errors.NewUpstreamError(paystackService, resp.StatusCode, "malformed response", decodeErr)
	}
	if !result.Status || result.Data.AuthorizationURL == "" {
		return nil, errors.NewUpstreamError(paystackService, resp.StatusCode, "transaction not initialized: "+result.Message, nil)
	}

	return &result, nil
}

// VerifySignature checks the HMAC-SHA512 of payload keyed with the secret key.
func (c *PaystackClient) VerifySignature(payload []byte, signature string) bool {
	if signature == "" || c.secretKey == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, Sign(c.secretKey, payload))
}

// Sign computes the webhook signature of payload.
func Sign(secret string, payload []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func (c *PaystackClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}
