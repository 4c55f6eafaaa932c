package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"candlehub/internal/config"
	"candlehub/internal/logger"
)

// MongoTier is the optional document-store tier. Expiry is handled by a TTL
// index on expires_at; Get double-checks the stamp since the TTL monitor only
// sweeps periodically.
type MongoTier struct {
	coll *mongo.Collection
}

type mongoDoc struct {
	ID        string           `bson:"_id"`
	Payload   primitive.Binary `bson:"payload"`
	Provider  string           `bson:"provider"`
	ExpiresAt time.Time        `bson:"expires_at"`
}

func NewMongoTier(cfg config.MongoConfig) (*MongoTier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		logger.Warnf("cache mongo: ttl index: %v", err)
	}
	return &MongoTier{coll: coll}, nil
}

func (m *MongoTier) Name() string { return "mongo" }

func (m *MongoTier) Get(ctx context.Context, key Key) ([]byte, bool) {
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			logger.Debugf("cache mongo: get %s: %v", key, err)
		}
		return nil, false
	}
	if !doc.ExpiresAt.IsZero() && doc.ExpiresAt.Before(time.Now().UTC()) {
		_, _ = m.coll.DeleteOne(ctx, bson.M{"_id": key.String()})
		return nil, false
	}
	return doc.Payload.Data, true
}

func (m *MongoTier) Set(ctx context.Context, key Key, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	doc := mongoDoc{
		ID:        key.String(),
		Payload:   primitive.Binary{Data: payload},
		Provider:  key.Provider,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": key.String()}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		logger.Debugf("cache mongo: set %s: %v", key, err)
	}
}

func (m *MongoTier) Delete(ctx context.Context, key Key) {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key.String()}); err != nil {
		logger.Debugf("cache mongo: del %s: %v", key, err)
	}
}
