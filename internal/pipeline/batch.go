// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

const defaultConcurrency = 4

// BatchItem is the outcome for one identifier of a batch.
type BatchItem struct {
	ArxivID string                `json:"arxiv_id" yaml:"arxiv_id"`
	Paper   *types.ValidatedPaper `json:"paper,omitempty" yaml:"paper,omitempty"`
	Err     error                 `json:"-" yaml:"-"`
}

// OK reports whether the paper was processed.
func (b BatchItem) OK() bool {
	return b.Err == nil
}

// ProcessBatch runs an independent pipeline per identifier, at most
// concurrency at a time (default 4). One paper failing does not stop the
// others. Items are returned in input order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, raws []string, concurrency int) []BatchItem {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	items := make([]BatchItem, len(raws))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, raw := range raws {
		g.Go(func() error {
			paper, err := o.Process(ctx, raw)
			items[i] = BatchItem{ArxivID: raw, Paper: paper, Err: err}
			return nil
		})
	}
	g.Wait()
	return items
}
