//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func setupPostgres(t *testing.T) *PostgresOrderRepository {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := OpenPostgres(ctx, config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "testuser",
		Password:     "testpass",
		Name:         "storefront",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		MaxLifetime:  time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	// Running twice is a no-op.
	require.NoError(t, RunMigrations(db))

	return NewPostgresOrderRepository(db, logging.NewLoggerV2("postgres-test"))
}

func TestPostgresOrderRepository_Lifecycle(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestOrder("u1", "ref_1", "p1", "p2"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User)
	require.Len(t, got.OrderItems, 2)
	assert.True(t, got.PaymentInfo.AmountPaid.Equal(created.PaymentInfo.AmountPaid))

	_, err = repo.Create(ctx, newTestOrder("u1", "ref_1", "p1"))
	assert.ErrorIs(t, err, errors.ErrDuplicate)

	byRef, err := repo.GetByPaymentReference(ctx, "ref_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRef.ID)

	ok, err := repo.HasPurchasedProduct(ctx, "u1", "p2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.HasPurchasedProduct(ctx, "u1", "p9")
	require.NoError(t, err)
	assert.False(t, ok)

	updated, err := repo.UpdateStatus(ctx, created.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), errors.ErrNotFound)
}

func TestPostgresOrderRepository_ListCountsFilteredOrders(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, newTestOrder("u1", ref, "p1"))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newTestOrder("u2", "d", "p1"))
	require.NoError(t, err)

	orders, total, err := repo.List(ctx, &models.OrderListFilter{User: "u1", Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, orders, 2)

	_, total, err = repo.List(ctx, &models.OrderListFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
