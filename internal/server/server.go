package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	auth     *middleware.JWTAuth
	http     *http.Server
	logger   *logging.LoggerV2
}

func New(h *handlers.Handlers, auth *middleware.JWTAuth, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(),
	)

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		auth:     auth,
		logger:   logging.NewLoggerV2("server"),
	}

	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")

	// Authenticated by the gateway signature, not a session.
	api.POST("/orders/webhook", s.handlers.PaymentWebhook)

	orders := api.Group("/orders", s.auth.RequireAuth())
	{
		orders.GET("/me", s.handlers.MyOrders)
		orders.GET("/can_review", s.handlers.CanReview)
		orders.POST("/checkout_session", s.handlers.CreateCheckoutSession)
	}

	admin := api.Group("/admin/orders", s.auth.RequireAuth(), middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("", s.handlers.ListOrders)
		admin.GET("/:id", s.handlers.GetOrder)
		admin.PUT("/:id", s.handlers.UpdateOrderStatus)
		admin.DELETE("/:id", s.handlers.DeleteOrder)
	}
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.http.Addr})
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
