package catalog

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
)

// Info describes one collection.
type Info struct {
	Name string
	// Documents is an estimate taken from collection metadata, not an
	// exact count.
	Documents int64
}

// Service exposes the collection catalog.
type Service struct {
	lister Lister
	logger *zap.Logger
}

// New creates a catalog service.
func New(lister Lister, logger *zap.Logger) *Service {
	return &Service{lister: lister, logger: logger}
}

// List returns all collections sorted by name. A failed count does not
// fail the listing; the entry is reported with a -1 size.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	names, err := s.lister.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrExecution, err)
	}
	sort.Strings(names)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		count, err := s.lister.Count(ctx, name)
		if err != nil {
			s.logger.Warn("count failed", zap.String("collection", name), zap.Error(err))
			count = -1
		}
		infos = append(infos, Info{Name: name, Documents: count})
	}
	return infos, nil
}
