package storage

import (
	"context"
	"time"

	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const signConcurrency = 8

// AccessURLs resolves access URLs for keys concurrently. A key that cannot
// be signed, or is empty, gets an empty URL; only cancellation of ctx
// fails the call.
func AccessURLs(ctx context.Context, p Provider, keys []string, ttl time.Duration) ([]string, error) {
	urls := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)

	for i, key := range keys {
		if key == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := p.AccessURL(gctx, key, ttl)
			if err != nil {
				utils.Component("storage").Warn("failed to sign blob url", zap.String("key", key), zap.Error(err))
				return nil
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
