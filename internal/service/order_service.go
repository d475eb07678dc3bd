package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      repository.OrderRepository
	orderCache     repository.OrderCache
	eventPublisher events.Publisher
	config         *config.Config
	loads          singleflight.Group
	logger         *logging.LoggerV2

	// cacheMu orders cache fills against invalidations. A fill is dropped
	// when an invalidation happened after its load started.
	cacheMu    sync.Mutex
	cacheEpoch uint64
}

// NewOrderService creates a new order service. orderCache may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	eventPublisher events.Publisher,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		orderCache:     orderCache,
		eventPublisher: eventPublisher,
		config:         cfg,
		logger:         logging.NewLoggerV2("order-service"),
	}
}

func (s *OrderService) cachingEnabled() bool {
	return s.config.Features.EnableOrderCaching && s.orderCache != nil
}

// ListOrders returns one page of every order, for admins. A non-empty
// status restricts the page to orders in that status.
func (s *OrderService) ListOrders(ctx context.Context, page int, status string) (*models.OrderPage, error) {
	filter := &models.OrderListFilter{Page: page, PerPage: models.DefaultResPerPage}
	if status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			return nil, errors.NewValidationError("status", fmt.Sprintf("unknown order status %q", status))
		}
		filter.Status = &parsed
	}
	return s.listPage(ctx, filter)
}

// MyOrders returns one page of the caller's orders.
func (s *OrderService) MyOrders(ctx context.Context, userID string, page int) (*models.OrderPage, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	return s.listPage(ctx, &models.OrderListFilter{User: userID, Page: page, PerPage: models.DefaultResPerPage})
}

func (s *OrderService) listPage(ctx context.Context, filter *models.OrderListFilter) (*models.OrderPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.WithContext(ctx).Error("Failed to list orders", logging.Fields{
			"user_id": filter.User,
			"page":    filter.Page,
			"error":   err.Error(),
		})
		return nil, err
	}

	return &models.OrderPage{
		OrdersCount: total,
		ResPerPage:  filter.PerPage,
		Orders:      orders,
	}, nil
}

// GetOrder retrieves an order by ID. Concurrent cache misses for one id
// share a single store lookup.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("id", "order id is required")
	}

	if s.cachingEnabled() {
		order, err := s.orderCache.Get(ctx, id)
		if err == nil && order != nil {
			return order, nil
		}
		if err != nil {
			s.logger.WithContext(ctx).Warn("Order cache unavailable", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		}
	}

	v, err, _ := s.loads.Do(id, func() (interface{}, error) {
		epoch := s.currentEpoch()
		order, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cachingEnabled() {
			s.fillCache(ctx, order, epoch)
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Order), nil
}

// UpdateOrderStatus validates and applies a status change.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	logger := s.logger.WithContext(ctx)

	newStatus, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, errors.NewValidationError("orderStatus", fmt.Sprintf("unknown order status %q", status))
	}

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !current.OrderStatus.CanTransitionTo(newStatus) {
		return nil, errors.NewValidationError("orderStatus", fmt.Sprintf(
			"invalid status transition from %s to %s",
			current.OrderStatus,
			newStatus,
		))
	}

	previousStatus := current.OrderStatus

	order, err := s.orderRepo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}

	s.invalidate(ctx, id)

	if previousStatus != newStatus {
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
			logger.Error("Failed to publish order status changed event", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		}
	}

	logger.Info("Order status updated", logging.Fields{
		"order_id":        id,
		"previous_status": previousStatus,
		"new_status":      newStatus,
	})
	return order, nil
}

// DeleteOrder removes an order.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	logger := s.logger.WithContext(ctx)

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)

	if err := s.eventPublisher.PublishOrderDeleted(ctx, order); err != nil {
		logger.Error("Failed to publish order deleted event", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
	}

	logger.Info("Order deleted", logging.Fields{"order_id": id})
	return nil
}

// CanReview reports whether the user has bought productID.
func (s *OrderService) CanReview(ctx context.Context, userID, productID string) (bool, error) {
	if strings.TrimSpace(productID) == "" {
		return false, errors.NewValidationError("productId", "product id is required")
	}
	if userID == "" {
		return false, errors.ErrUnauthorized
	}
	return s.orderRepo.HasPurchasedProduct(ctx, userID, productID)
}

func (s *OrderService) currentEpoch() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheEpoch
}

func (s *OrderService) fillCache(ctx context.Context, order *models.Order, epoch uint64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.cacheEpoch != epoch {
		return
	}
	if err := s.orderCache.Set(ctx, order); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to cache order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

// invalidate must run after the store write it covers.
func (s *OrderService) invalidate(ctx context.Context, id string) {
	if !s.cachingEnabled() {
		return
	}
	s.cacheMu.Lock()
	s.cacheEpoch++
	s.cacheMu.Unlock()

	if err := s.orderCache.Delete(ctx, id); err != nil {
		s.logger.WithContext(ctx).Error("Failed to invalidate cached order", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
	}
}
