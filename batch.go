package clamd

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FileResult pairs a scanned path with its outcome.
type FileResult struct {
	Path   string
	Result *Result
}

// ScanFiles scans every path concurrently, each on its own connection, and
// returns results in the same order as the paths. Config.ScanConcurrency
// bounds the number of simultaneous connections.
//
// The first transport failure cancels the remaining scans and is returned;
// daemon-side outcomes (infected, oversized, daemon error) are not failures
// and never interrupt the batch.
func (c *Client) ScanFiles(ctx context.Context, paths ...string) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if c.scanConcurrency > 0 {
		g.SetLimit(c.scanConcurrency)
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			result, err := c.ScanFileContext(ctx, path)
			if err != nil {
				return err
			}
			results[i] = FileResult{Path: path, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
