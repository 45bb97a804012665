package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"segsearch/internal/domain"
)

// fakeEmbedder derives a deterministic 3-dimensional vector from the text.
type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, &domain.EmbeddingCallError{Attempts: 3, Err: errors.New("capability unavailable")}
	}
	sum := 0.0
	for _, r := range text {
		sum += float64(r)
	}
	return []float64{float64(len(text)), float64(domain.CountWords(text)), sum}, nil
}

func chapterSegments(n int) []domain.Segment {
	segments := make([]domain.Segment, n)
	for i := range segments {
		text := strings.Repeat("wort ", i+1) + "Ende."
		segments[i] = domain.Segment{
			ID:        domain.SegmentID(2, i+1),
			KapNr:     2,
			KapTitel:  "Test",
			SegNr:     i + 1,
			WordCount: domain.CountWords(text),
			Text:      text,
		}
	}
	return segments
}

func TestIndexChapterKeepsSegmentOrder(t *testing.T) {
	segments := chapterSegments(17)
	ix := New(&fakeEmbedder{}, 4)
	entries, err := ix.IndexChapter(context.Background(), segments)
	if err != nil {
		t.Fatalf("IndexChapter: %v", err)
	}
	if len(entries) != len(segments) {
		t.Fatalf("got %d entries, want %d", len(entries), len(segments))
	}
	for i, e := range entries {
		seg := segments[i]
		if e.SegmentID != seg.ID || e.SegNr != seg.SegNr || e.Text != seg.Text {
			t.Errorf("entry %d: %+v does not match segment %+v", i, e, seg)
		}
		if e.Vector[0] != float64(len(seg.Text)) {
			t.Errorf("entry %d: vector not derived from its own segment", i)
		}
	}
}

func TestIndexChapterAtomicOnFailure(t *testing.T) {
	segments := chapterSegments(9)
	ix := New(&fakeEmbedder{failOn: segments[4].Text}, 3)
	entries, err := ix.IndexChapter(context.Background(), segments)
	if err == nil {
		t.Fatal("expected an error")
	}
	if entries != nil {
		t.Errorf("entries = %+v, want nil on failure", entries)
	}
	var callErr *domain.EmbeddingCallError
	if !errors.As(err, &callErr) {
		t.Errorf("err = %v, want wrapped EmbeddingCallError", err)
	}
	if !strings.Contains(err.Error(), segments[4].ID) {
		t.Errorf("error should name the failing segment: %v", err)
	}
}

func TestIndexChapterEmptyInput(t *testing.T) {
	ix := New(&fakeEmbedder{}, 2)
	_, err := ix.IndexChapter(context.Background(), nil)
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestIndexChapterConcurrencyAboveSegmentCount(t *testing.T) {
	segments := chapterSegments(2)
	ix := New(&fakeEmbedder{}, 64)
	entries, err := ix.IndexChapter(context.Background(), segments)
	if err != nil {
		t.Fatalf("IndexChapter: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}
