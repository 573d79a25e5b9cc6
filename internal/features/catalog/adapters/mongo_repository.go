package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcity-orders/internal/features/catalog/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productsCollection = "products"

// MongoProductRepository implements ports.ProductRepository on a MongoDB collection.
type MongoProductRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoProductRepository creates a repository over the "products" collection.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return newMongoProductRepository(db.Collection(productsCollection))
}

func newMongoProductRepository(coll *mongo.Collection) *MongoProductRepository {
	return &MongoProductRepository{coll: coll, now: time.Now}
}

// GetProduct loads a product by id.
func (r *MongoProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &p, nil
}

// DecrementStock takes amount units in one conditional update. The filter
// only matches an active product with stock >= amount, so concurrent callers
// can never oversell and a product withdrawn from sale is never sold.
// Status flips to out-of-stock in the same write when stock hits zero.
func (r *MongoProductRepository) DecrementStock(ctx context.Context, id string, amount int64) error {
	if amount < 1 {
		return domain.ErrInvalidQuantity
	}

	remaining := bson.M{"$subtract": bson.A{"$stock", amount}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock": remaining,
			"status": bson.M{"$cond": bson.A{
				bson.M{"$lte": bson.A{remaining, 0}},
				string(domain.ProductStatusOutOfStock),
				"$status",
			}},
			"updated_at": r.now().UTC(),
		}}},
	}

	filter := bson.M{
		"_id":    id,
		"status": string(domain.ProductStatusActive),
		"stock":  bson.M{"$gte": amount},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for %s: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	var current struct {
		Status domain.ProductStatus `bson:"status"`
		Stock  int64                `bson:"stock"`
	}
	projection := options.FindOne().SetProjection(bson.M{"status": 1, "stock": 1})
	err = r.coll.FindOne(ctx, bson.M{"_id": id}, projection).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check product %s: %w", id, err)
	}
	if err := domain.ReserveFrom(id, amount, current.Status, current.Stock); err != nil {
		return err
	}
	// The document changed between the update and the read.
	return &domain.StockError{ProductID: id, Requested: amount, Available: -1}
}

// IncrementStock returns amount units, reactivating an out-of-stock product.
func (r *MongoProductRepository) IncrementStock(ctx context.Context, id string, amount int64) error {
	if amount < 1 {
		return domain.ErrInvalidQuantity
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock": bson.M{"$add": bson.A{"$stock", amount}},
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", string(domain.ProductStatusOutOfStock)}},
				string(domain.ProductStatusActive),
				"$status",
			}},
			"updated_at": r.now().UTC(),
		}}},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrProductNotFound)
	}
	return nil
}

// Upsert inserts or replaces a product document.
func (r *MongoProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	product.UpdatedAt = r.now().UTC()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, product, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ID, err)
	}
	return nil
}

// EnsureIndexes creates the secondary indexes used by catalog queries.
func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "location.latitude", Value: 1}, {Key: "location.longitude", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}
