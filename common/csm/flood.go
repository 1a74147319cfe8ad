package csm

import (
	"context"
	"sync"

	"cortx-e2e/common/cterror"

	"golang.org/x/sync/errgroup"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// Flood runs fn requests times on at most workers goroutines and returns how
// many calls ended with each http status. Calls that did not get a response
// are counted under status 0.
func Flood(ctx context.Context, workers, requests int, fn func(ctx context.Context) (int, error)) (map[int]int, error) {
	if workers <= 0 || requests < 0 {
		return nil, cterror.NewException(cterror.InvalidArgs, "workers %d requests %d", workers, requests)
	}
	var mu sync.Mutex
	hist := make(map[int]int)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ix := 0; ix < requests; ix++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			status, err := fn(gctx)
			if err != nil && status == 0 {
				logf.Log.V(1).Info("flood request failed", "error", err)
			}
			mu.Lock()
			hist[status]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return hist, err
	}
	logf.Log.Info("Flood", "requests", requests, "workers", workers, "statuses", hist)
	return hist, nil
}

// FloodPath sends the same request through c.
func (c *Client) FloodPath(ctx context.Context, workers, requests int, method, path string) (map[int]int, error) {
	return Flood(ctx, workers, requests, func(ctx context.Context) (int, error) {
		status, _, err := c.Send(ctx, method, path, nil)
		return status, err
	})
}
