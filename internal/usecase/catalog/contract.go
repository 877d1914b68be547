// Package catalog lists the collections available for querying.
package catalog

import "context"

// Lister enumerates collections and their approximate sizes.
type Lister interface {
	ListCollections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int64, error)
}
