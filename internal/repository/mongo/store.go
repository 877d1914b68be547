// Package mongo adapts the MongoDB driver to the query pipeline's
// find/aggregate store contract.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds connection parameters for the document store.
type Config struct {
	URI      string
	Database string
}

// Store executes queries against a single MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// ciCollation makes equality and sort comparisons case-insensitive without
// touching pattern-match semantics (strength 2 ignores case, keeps accents).
var ciCollation = &options.Collation{Locale: "en", Strength: 2}

// NewStore connects to the document store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("store not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Sample reads up to limit documents without a filter, preserving field
// order, so the schema sampler can learn real casing.
func (s *Store) Sample(ctx context.Context, collection string, limit int) ([]bson.D, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{},
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", collection, err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sample %s: %w", collection, err)
	}
	return docs, nil
}

// Find executes a filter query under the guard's decisions: the clamped
// limit, optional projection and sort, and an optional case-insensitive
// collation.
func (s *Store) Find(
	ctx context.Context, collection string,
	filter, projection, sort any, limit int, caseInsensitive bool,
) ([]bson.M, error) {
	fo := options.Find().SetLimit(int64(limit))
	if projection != nil {
		fo.SetProjection(projection)
	}
	if sort != nil {
		fo.SetSort(sort)
	}
	if caseInsensitive {
		fo.SetCollation(ciCollation)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, fo)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode find %s: %w", collection, err)
	}
	return docs, nil
}

// Aggregate executes a pipeline. Disk use stays disabled: pipelines come
// from an untrusted generator and must not spill server resources.
func (s *Store) Aggregate(
	ctx context.Context, collection string, pipeline []any,
) ([]bson.M, error) {
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline,
		options.Aggregate().SetAllowDiskUse(false))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode aggregate %s: %w", collection, err)
	}
	return docs, nil
}

// ListCollections returns the database's collection names.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Count returns an estimated document count for a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.db.Collection(collection).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}
