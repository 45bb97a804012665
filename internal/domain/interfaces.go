package domain

import "context"

// SearchResult is a matching segment with its cosine similarity score.
type SearchResult struct {
	SegmentID string
	KapNr     int
	KapTitel  string
	SegNr     int
	Score     float64
	Text      string
}

// Segmenter splits raw chapter text into ordered segment records.
// It is pure: identical input yields identical output.
type Segmenter interface {
	Segment(kapNr int, kapTitel, text string) ([]Segment, error)
}

// Embedder converts free text into a fixed-dimension vector via an external
// capability. Dimension may be zero until the first successful call when the
// capability reports it lazily.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Store durably saves and loads the vector index. Save must be atomic: a
// crash mid-write never corrupts the previously saved index.
type Store interface {
	Save(index *Index) error
	Load() (*Index, error)
}

// Mirror replicates a saved index into a secondary backend. Mirrors are
// never a source of truth.
type Mirror interface {
	Push(ctx context.Context, index *Index) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
