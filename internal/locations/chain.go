package locations

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/valuation"
)

// ChainResolver tries resolvers in order and returns the first non-empty
// answer. It fails only when every resolver failed.
type ChainResolver struct {
	resolvers []valuation.NeighborResolver
	logger    *zap.Logger
}

// NewChainResolver creates a chain over the given resolvers
func NewChainResolver(logger *zap.Logger, resolvers ...valuation.NeighborResolver) *ChainResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainResolver{resolvers: resolvers, logger: logger}
}

func (r *ChainResolver) NeighboringLocations(ctx context.Context, city, state string) ([]string, error) {
	var errs []error
	for i, resolver := range r.resolvers {
		neighbors, err := resolver.NeighboringLocations(ctx, city, state)
		if err != nil {
			r.logger.Warn("Neighbor resolver failed",
				zap.Int("position", i),
				zap.String("city", city),
				zap.String("state", state),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if len(neighbors) > 0 {
			return neighbors, nil
		}
	}

	if len(errs) == len(r.resolvers) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return []string{}, nil
}
