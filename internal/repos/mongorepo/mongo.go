// Package mongorepo stores the catalog, the order ledger and the invoice
// counter in MongoDB.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedshop/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

// CreateIndexes sets up the secondary indexes used for ordering and range
// scans.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("products").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	}); err != nil {
		return fmt.Errorf("products index: %w", err)
	}
	if _, err := db.Collection("orders").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("orders index: %w", err)
	}
	return nil
}

// Prices travel as strings so no precision is lost to float64.
type productDoc struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Price    string `bson:"price"`
	Stock    int    `bson:"stock"`
	ImageURL string `bson:"image_url"`
	Details  string `bson:"details"`
	Seq      int64  `bson:"seq"`
}

func toProductDoc(p domain.Product) productDoc {
	return productDoc{ID: p.ID, Name: p.Name, Price: p.Price.String(), Stock: p.Stock,
		ImageURL: p.ImageURL, Details: p.Details, Seq: p.Seq}
}

// upsertDoc sets the descriptive fields; stock and seq are only written
// when the document is created.
func upsertDoc(p domain.Product) bson.M {
	d := toProductDoc(p)
	return bson.M{
		"$set":         bson.M{"name": d.Name, "price": d.Price, "image_url": d.ImageURL, "details": d.Details},
		"$setOnInsert": bson.M{"stock": d.Stock, "seq": d.Seq},
	}
}

func (d productDoc) product() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s price: %w", d.ID, err)
	}
	return domain.Product{ID: d.ID, Name: d.Name, Price: price, Stock: d.Stock,
		ImageURL: d.ImageURL, Details: d.Details, Seq: d.Seq}, nil
}

type ProductRepo struct{ collection *mongo.Collection }

func NewProductRepo(db *mongo.Database) *ProductRepo {
	return &ProductRepo{collection: db.Collection("products")}
}

func (r *ProductRepo) LoadAll(ctx context.Context) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var d productDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return d.product()
}

func (r *ProductRepo) SaveAll(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetUpdate(upsertDoc(p)).
			SetUpsert(true))
	}
	if _, err := r.collection.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("failed to save products: %w", err)
	}
	return nil
}

func (r *ProductRepo) Upsert(ctx context.Context, p domain.Product) error {
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, upsertDoc(p), opts); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *ProductRepo) SwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": expected},
		bson.M{"$set": bson.M{"stock": next}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to swap stock: %w", err)
	}
	return res.MatchedCount == 1, nil
}

type lineDoc struct {
	ProductID string `bson:"product_id"`
	Name      string `bson:"name"`
	UnitPrice string `bson:"unit_price"`
	Quantity  int    `bson:"qty"`
}

type orderDoc struct {
	InvoiceID int64     `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	Total     string    `bson:"total"`
	Lines     []lineDoc `bson:"lines"`
}

func toOrderDoc(o domain.Order) orderDoc {
	d := orderDoc{InvoiceID: o.InvoiceID, CreatedAt: o.Timestamp.UTC(), Total: o.Total().String(),
		Lines: make([]lineDoc, 0, len(o.Lines))}
	for _, l := range o.Lines {
		d.Lines = append(d.Lines, lineDoc{ProductID: l.ProductID, Name: l.Name,
			UnitPrice: l.UnitPrice.String(), Quantity: l.Quantity})
	}
	return d
}

func (d orderDoc) order() (domain.Order, error) {
	o := domain.Order{InvoiceID: d.InvoiceID, Timestamp: d.CreatedAt.UTC()}
	for _, l := range d.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d line price: %w", d.InvoiceID, err)
		}
		o.Lines = append(o.Lines, domain.OrderLine{ProductID: l.ProductID, Name: l.Name,
			UnitPrice: price, Quantity: l.Quantity})
	}
	return o, nil
}

type OrderRepo struct{ collection *mongo.Collection }

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{collection: db.Collection("orders")}
}

func (r *OrderRepo) Append(ctx context.Context, o domain.Order) error {
	if _, err := r.collection.InsertOne(ctx, toOrderDoc(o)); err != nil {
		return fmt.Errorf("failed to append order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Update(ctx context.Context, o domain.Order) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": o.InvoiceID}, toOrderDoc(o))
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %d: %w", o.InvoiceID, domain.ErrNotFound)
	}
	return nil
}

func (r *OrderRepo) LoadAll(ctx context.Context) ([]domain.Order, error) {
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

type Counter struct {
	collection *mongo.Collection
	name       string
}

func NewInvoiceCounter(db *mongo.Database) *Counter {
	return &Counter{collection: db.Collection("counters"), name: "invoice"}
}

func (c *Counter) Next(ctx context.Context) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := c.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": c.name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to bump invoice counter: %w", err)
	}
	return domain.InvoiceBase + doc.Value, nil
}
