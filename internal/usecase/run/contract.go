package run

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Repository defines the storage contract for query execution.
type Repository interface {
	Find(
		ctx context.Context, collection string,
		filter, projection, sort any, limit int, caseInsensitive bool,
	) ([]bson.M, error)

	Aggregate(ctx context.Context, collection string, pipeline []any) ([]bson.M, error)
}
