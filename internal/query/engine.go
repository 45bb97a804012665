// Package query answers similarity queries against a loaded index snapshot.
// It is read-only: the snapshot is never mutated.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"segsearch/internal/domain"
)

// Engine embeds a query string and ranks index entries by cosine similarity.
type Engine struct {
	embedder domain.Embedder
}

// NewEngine creates a query engine using the same embedding capability the
// index was built with.
func NewEngine(embedder domain.Embedder) *Engine {
	return &Engine{embedder: embedder}
}

// Query returns the k highest-scoring segments for the query text, ordered
// by descending score with ties broken by ascending segment id. It returns
// min(k, index size) results.
func (e *Engine) Query(ctx context.Context, index *domain.Index, text string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ValidationError{Reason: "query text is empty"}
	}
	if k <= 0 {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("k must be positive, got %d", k)}
	}
	if index == nil || index.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != index.Dimension {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("query vector dimension %d does not match index dimension %d", len(vec), index.Dimension),
		}
	}

	results := make([]domain.SearchResult, 0, index.Len())
	for _, entry := range index.Entries {
		results = append(results, domain.SearchResult{
			SegmentID: entry.SegmentID,
			KapNr:     entry.KapNr,
			KapTitel:  entry.KapTitel,
			SegNr:     entry.SegNr,
			Score:     Cosine(vec, entry.Vector),
			Text:      entry.Text,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SegmentID < results[j].SegmentID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Cosine computes the cosine similarity of two vectors. Mismatched lengths
// or zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
