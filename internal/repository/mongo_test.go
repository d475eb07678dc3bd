//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func setupMongo(t *testing.T) *MongoOrderRepository {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "storefront_test")
	require.NoError(t, err)

	repo := NewMongoOrderRepository(db, logging.NewLoggerV2("mongo-test"))
	require.NoError(t, repo.CreateIndexes(ctx))
	return repo
}

func TestMongoOrderRepository_Lifecycle(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestOrder("u1", "ref_1", "p1"))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.OrderItems[0].Price.Equal(created.OrderItems[0].Price))
	assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)

	_, err = repo.Create(ctx, newTestOrder("u1", "ref_1", "p1"))
	assert.ErrorIs(t, err, errors.ErrDuplicate)

	ok, err := repo.HasPurchasedProduct(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := repo.UpdateStatus(ctx, created.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, updated.OrderStatus)

	orders, total, err := repo.List(ctx, &models.OrderListFilter{User: "u1", Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByPaymentReference(ctx, "ref_1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
