package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// OrderRepository persists orders. Every store driver implements it.
type OrderRepository interface {
	// Create assigns an id and timestamps and stores the order. It returns
	// errors.ErrDuplicate when an order with the same payment reference exists.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	// List returns one page of orders, newest first, and the number of
	// orders matching the filter.
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id string) error
	HasPurchasedProduct(ctx context.Context, userID, productID string) (bool, error)
	Ping(ctx context.Context) error
}

// OrderCache defines caching operations for orders. A miss is (nil, nil).
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

// EventDeduplicator guards against processing one gateway event twice.
type EventDeduplicator interface {
	// Claim returns true when the caller is the first to see key.
	Claim(ctx context.Context, key string) (bool, error)
	// Release gives up a claim so a later delivery can retry.
	Release(ctx context.Context, key string) error
}

var (
	_ OrderRepository = (*PostgresOrderRepository)(nil)
	_ OrderRepository = (*MongoOrderRepository)(nil)
	_ OrderRepository = (*MemoryOrderRepository)(nil)

	_ OrderCache = (*RedisOrderCache)(nil)

	_ EventDeduplicator = (*RedisEventDeduplicator)(nil)
	_ EventDeduplicator = (*MemoryEventDeduplicator)(nil)
)
