package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchConcurrency caps parallel generation runs so a batch does not
// flood the model provider.
const batchConcurrency = 4

// BatchItem pairs one request's outcome with its position in the batch.
type BatchItem struct {
	Request Request
	Result  Result
	Err     error
}

// GenerateBatch runs several requests concurrently. Individual failures
// are reported per item instead of aborting the batch; duplicate topics
// across items for the same date are still caught, since each run records
// its topic through the shared uniqueness engine.
func (p *Pipeline) GenerateBatch(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := p.Generate(ctx, req)
			items[i] = BatchItem{Request: req, Result: res, Err: err}
			return nil
		})
	}
	g.Wait()

	return items
}
