package generate

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Sampler draws a bounded, order-preserving sample of documents so the
// compiler can learn real field casing.
type Sampler interface {
	Sample(ctx context.Context, collection string, limit int) ([]bson.D, error)
}

// Generator produces raw model text for a system+user instruction pair.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
