package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

func newTestServer(t *testing.T) (*Server, *middleware.JWTAuth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 0},
		Paystack: config.PaystackConfig{BaseURL: "http://127.0.0.1:1", SecretKey: "sk_test"},
		Features: config.FeatureFlags{VerifyWebhookSignature: true},
	}
	repo := repository.NewMemoryOrderRepository()
	paystack := clients.NewPaystackClient(cfg.Paystack, logging.NewLoggerV2("paystack"))

	h := handlers.NewHandlers(
		service.NewOrderService(repo, nil, events.NoopPublisher{}, cfg),
		service.NewCheckoutService(paystack, cfg),
		service.NewWebhookService(repo, nil, paystack, events.NoopPublisher{}, clients.NoopNotifier{}, cfg),
		repo,
		cfg,
	)

	auth := middleware.NewJWTAuth("jwt-secret", time.Hour)
	return New(h, auth, cfg), auth
}

func serve(s *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestRoutes_Auth(t *testing.T) {
	s, auth := newTestServer(t)

	userToken, err := auth.GenerateToken("u1", "u1@example.com", middleware.RoleUser)
	require.NoError(t, err)
	adminToken, err := auth.GenerateToken("a1", "a1@example.com", middleware.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"my orders anonymous", http.MethodGet, "/api/orders/me", "", http.StatusUnauthorized},
		{"my orders user", http.MethodGet, "/api/orders/me", userToken, http.StatusOK},
		{"admin list as user", http.MethodGet, "/api/admin/orders", userToken, http.StatusForbidden},
		{"admin list as admin", http.MethodGet, "/api/admin/orders", adminToken, http.StatusOK},
		{"admin get missing", http.MethodGet, "/api/admin/orders/nope", adminToken, http.StatusNotFound},
		{"webhook needs no session", http.MethodPost, "/api/orders/webhook", "", http.StatusBadRequest},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"version", http.MethodGet, "/version", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRoutes_MetricsAndRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	serve(s, http.MethodGet, "/health", "")

	w := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "storefront_http_requests_total"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}
