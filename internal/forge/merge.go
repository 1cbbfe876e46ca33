package forge

import (
	"context"

	"golang.org/x/sync/errgroup"

	"atelier/internal/logging"
)

// MergeVariants folds variants into one version with a pairwise tree of
// aggregator calls. Each round merges neighbours (0,1), (2,3), ... in
// parallel and carries an odd tail forward unchanged.
func (p *Pipeline) MergeVariants(ctx context.Context, original string, variants []string) (string, error) {
	if len(variants) == 0 {
		return "", ErrNoVariants
	}
	round := append([]string(nil), variants...)
	for depth := 1; len(round) > 1; depth++ {
		next := make([]string, (len(round)+1)/2)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.concurrency)
		for i := 0; i+1 < len(round); i += 2 {
			g.Go(func() error {
				merged, err := p.Aggregate(gctx, original, round[i:i+2])
				if err != nil {
					return err
				}
				next[i/2] = merged
				return nil
			})
		}
		if len(round)%2 == 1 {
			next[len(next)-1] = round[len(round)-1]
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		logging.WithContext(ctx, p.logger).Debug("merge round complete",
			logging.Int("round", depth),
			logging.Int("inputs", len(round)),
			logging.Int("outputs", len(next)),
		)
		round = next
	}
	return round[0], nil
}
