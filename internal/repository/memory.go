package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

type memoryRecord struct {
	order *models.Order
	seq   uint64
}

// MemoryOrderRepository keeps orders in process memory. It backs local runs
// and tests.
type MemoryOrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*memoryRecord
	byReference map[string]string
	seq         uint64
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:      make(map[string]*memoryRecord),
		byReference: make(map[string]string),
	}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byReference[order.PaymentInfo.ID]; ok && order.PaymentInfo.ID != "" {
		return nil, errors.ErrDuplicate
	}

	stored := cloneOrder(order)
	stored.ID = uuid.NewString()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.OrderStatus == "" {
		stored.OrderStatus = models.OrderStatusProcessing
	}

	r.seq++
	r.orders[stored.ID] = &memoryRecord{order: stored, seq: r.seq}
	if stored.PaymentInfo.ID != "" {
		r.byReference[stored.PaymentInfo.ID] = stored.ID
	}

	return cloneOrder(stored), nil
}

func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return cloneOrder(rec.order), nil
}

func (r *MemoryOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	r.mu.RLock()
	id, ok := r.byReference[reference]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryOrderRepository) List(_ context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*memoryRecord, 0, len(r.orders))
	for _, rec := range r.orders {
		if filter.User != "" && rec.order.User != filter.User {
			continue
		}
		if filter.Status != nil && rec.order.OrderStatus != *filter.Status {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}

	page := make([]*models.Order, 0, end-start)
	for _, rec := range matched[start:end] {
		page = append(page, cloneOrder(rec.order))
	}
	return page, total, nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	rec.order.OrderStatus = status
	rec.order.UpdatedAt = time.Now().UTC()
	return cloneOrder(rec.order), nil
}

func (r *MemoryOrderRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.orders[id]
	if !ok {
		return errors.ErrNotFound
	}
	delete(r.byReference, rec.order.PaymentInfo.ID)
	delete(r.orders, id)
	return nil
}

func (r *MemoryOrderRepository) HasPurchasedProduct(_ context.Context, userID, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.orders {
		if rec.order.User == userID && rec.order.ContainsProduct(productID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryOrderRepository) Ping(context.Context) error {
	return nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.OrderItems = make([]models.OrderItem, len(o.OrderItems))
	copy(c.OrderItems, o.OrderItems)
	return &c
}
