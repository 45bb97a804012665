// Package indexer converts segment records into index entries by calling
// the embedding capability with bounded concurrency.
package indexer

import (
	"context"
	"fmt"

	"segsearch/internal/domain"
)

// Indexer embeds segments and produces index entries. Embedding calls fan
// out through a semaphore; results are reassembled by segment position so
// the output order never depends on completion order.
type Indexer struct {
	embedder    domain.Embedder
	concurrency int
}

// New creates an Indexer. Concurrency below 1 falls back to 1.
func New(embedder domain.Embedder, concurrency int) *Indexer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Indexer{embedder: embedder, concurrency: concurrency}
}

// IndexChapter embeds all segments of one chapter and returns the entries
// in segment order. It is atomic: on any failure no entries are returned,
// so a chapter is either fully embedded or not at all.
func (ix *Indexer) IndexChapter(ctx context.Context, segments []domain.Segment) ([]domain.IndexEntry, error) {
	if len(segments) == 0 {
		return nil, &domain.ValidationError{Reason: "no segments to index"}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float64, len(segments))
	sem := make(chan struct{}, ix.concurrency)
	errCh := make(chan error, len(segments))

	for i := range segments {
		sem <- struct{}{}
		go func(pos int) {
			defer func() { <-sem }()
			vec, err := ix.embedder.Embed(ctx, segments[pos].Text)
			if err != nil {
				cancel()
				errCh <- fmt.Errorf("segment %s: %w", segments[pos].ID, err)
				return
			}
			vectors[pos] = vec
			errCh <- nil
		}(i)
	}

	var firstErr error
	for range segments {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	dim := len(vectors[0])
	entries := make([]domain.IndexEntry, len(segments))
	for i, seg := range segments {
		if len(vectors[i]) != dim {
			return nil, &domain.ValidationError{
				Reason: fmt.Sprintf("segment %s: vector dimension %d differs from %d", seg.ID, len(vectors[i]), dim),
			}
		}
		entries[i] = domain.IndexEntry{
			SegmentID: seg.ID,
			KapNr:     seg.KapNr,
			KapTitel:  seg.KapTitel,
			SegNr:     seg.SegNr,
			WordCount: seg.WordCount,
			Text:      seg.Text,
			Vector:    vectors[i],
		}
	}
	return entries, nil
}
