package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const ordersCollection = "orders"

// ConnectMongoDB connects to uri and returns the named database.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// Amounts are stored as strings so decimals survive the round trip.
type orderItemDocument struct {
	Product  string            `bson:"product"`
	Name     string            `bson:"name"`
	Price    string            `bson:"price"`
	Quantity int               `bson:"quantity"`
	Image    string            `bson:"image"`
	Metadata map[string]string `bson:"metadata,omitempty"`
}

type paymentInfoDocument struct {
	ID         string `bson:"id"`
	Status     string `bson:"status"`
	AmountPaid string `bson:"amountPaid"`
	TaxPaid    string `bson:"taxPaid"`
}

type orderDocument struct {
	ID           string              `bson:"_id"`
	User         string              `bson:"user"`
	ShippingInfo string              `bson:"shippingInfo"`
	OrderItems   []orderItemDocument `bson:"orderItems"`
	PaymentInfo  paymentInfoDocument `bson:"paymentInfo"`
	OrderStatus  string              `bson:"orderStatus"`
	CreatedAt    time.Time           `bson:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt"`
}

func toOrderDocument(o *models.Order) orderDocument {
	items := make([]orderItemDocument, len(o.OrderItems))
	for i, item := range o.OrderItems {
		items[i] = orderItemDocument{
			Product:  item.Product,
			Name:     item.Name,
			Price:    item.Price.String(),
			Quantity: item.Quantity,
			Image:    item.Image,
			Metadata: item.Metadata,
		}
	}

	return orderDocument{
		ID:           o.ID,
		User:         o.User,
		ShippingInfo: o.ShippingInfo,
		OrderItems:   items,
		PaymentInfo: paymentInfoDocument{
			ID:         o.PaymentInfo.ID,
			Status:     o.PaymentInfo.Status,
			AmountPaid: o.PaymentInfo.AmountPaid.String(),
			TaxPaid:    o.PaymentInfo.TaxPaid.String(),
		},
		OrderStatus: string(o.OrderStatus),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func (d *orderDocument) toModel() (*models.Order, error) {
	items := make([]models.OrderItem, len(d.OrderItems))
	for i, item := range d.OrderItems {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("decode item price: %w", err)
		}
		items[i] = models.OrderItem{
			Product:  item.Product,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
			Image:    item.Image,
			Metadata: item.Metadata,
		}
	}

	amountPaid, err := decimalOrZero(d.PaymentInfo.AmountPaid)
	if err != nil {
		return nil, err
	}
	taxPaid, err := decimalOrZero(d.PaymentInfo.TaxPaid)
	if err != nil {
		return nil, err
	}

	return &models.Order{
		ID:           d.ID,
		User:         d.User,
		ShippingInfo: d.ShippingInfo,
		OrderItems:   items,
		PaymentInfo: models.PaymentInfo{
			ID:         d.PaymentInfo.ID,
			Status:     d.PaymentInfo.Status,
			AmountPaid: amountPaid,
			TaxPaid:    taxPaid,
		},
		OrderStatus: models.OrderStatus(d.OrderStatus),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func decimalOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// MongoOrderRepository implements OrderRepository on the "orders"
// collection, using the field names the storefront clients read.
type MongoOrderRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	logger     *logging.LoggerV2
}

func NewMongoOrderRepository(db *mongo.Database, logger *logging.LoggerV2) *MongoOrderRepository {
	return &MongoOrderRepository{
		db:         db,
		collection: db.Collection(ordersCollection),
		logger:     logger,
	}
}

// CreateIndexes ensures the payment reference is unique and user listings are indexed.
func (m *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "paymentInfo.id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("payment_reference_unique"),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created"),
		},
		{
			Keys:    bson.D{{Key: "orderItems.product", Value: 1}},
			Options: options.Index().SetName("items_product"),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	stored := *order
	stored.ID = uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.OrderStatus == "" {
		stored.OrderStatus = models.OrderStatusProcessing
	}

	if _, err := m.collection.InsertOne(ctx, toOrderDocument(&stored)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.ErrDuplicate
		}
		m.logger.Error("Failed to create order", logging.Fields{
			"user_id": stored.User,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("insert order: %w", err)
	}

	m.logger.Info("Order created successfully", logging.Fields{
		"order_id":  stored.ID,
		"user_id":   stored.User,
		"reference": stored.PaymentInfo.ID,
	})
	return &stored, nil
}

func (m *MongoOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoOrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	return m.findOne(ctx, bson.M{"paymentInfo.id": reference})
}

func (m *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return doc.toModel()
}

func (m *MongoOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	query := bson.M{}
	if filter.User != "" {
		query["user"] = filter.User
	}
	if filter.Status != nil {
		query["orderStatus"] = string(*filter.Status)
	}

	total, err := m.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.PerPage))

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*models.Order, 0, filter.PerPage)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode order: %w", err)
		}
		order, err := doc.toModel()
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	return orders, int(total), nil
}

func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	update := bson.M{"$set": bson.M{
		"orderStatus": string(status),
		"updatedAt":   time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDocument
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	m.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})
	return doc.toModel()
}

func (m *MongoOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return errors.ErrNotFound
	}

	m.logger.Info("Order deleted", logging.Fields{"order_id": id})
	return nil
}

func (m *MongoOrderRepository) HasPurchasedProduct(ctx context.Context, userID, productID string) (bool, error) {
	filter := bson.M{"user": userID, "orderItems.product": productID}
	n, err := m.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("query purchases: %w", err)
	}
	return n > 0, nil
}

func (m *MongoOrderRepository) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}
