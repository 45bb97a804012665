// Package service orchestrates the build, add-chapter, query and ask
// operations. Build and add are serialized through a single writer lock;
// queries run against an immutable snapshot of the last saved index.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"segsearch/internal/answer"
	"segsearch/internal/domain"
	"segsearch/internal/indexer"
	"segsearch/internal/query"
	"segsearch/internal/segfile"
	"segsearch/internal/segmenter"
	"segsearch/internal/store"
)

// Options assemble a Pipeline. Answerer and Mirror are optional.
type Options struct {
	Segmenter  *segmenter.Segmenter
	Limits     segmenter.Limits
	Embedder   domain.Embedder
	Store      domain.Store
	Indexer    *indexer.Indexer
	Engine     *query.Engine
	Summarizer domain.Summarizer
	Answerer   *answer.Client
	Mirror     domain.Mirror
	SegmentDir string
	DefaultK   int
	Review     bool
}

// Pipeline is the application core behind the CLI and TUI.
type Pipeline struct {
	opts Options

	writeMu sync.Mutex // serializes build/add across the process

	snapMu   sync.RWMutex
	snapshot *domain.Index
}

// NewPipeline wires the components into a pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.DefaultK <= 0 {
		opts.DefaultK = 4
	}
	return &Pipeline{opts: opts}
}

// ChapterResult reports what an add-chapter run produced.
type ChapterResult struct {
	Segments    []domain.Segment
	Report      segmenter.Report
	Review      *answer.Review
	Summary     string
	SegmentFile string
	IndexSize   int
}

// AddChapter segments, validates, persists and embeds one chapter. It is
// atomic with respect to the persisted index: on any failure the previously
// saved index is left untouched.
func (p *Pipeline) AddChapter(ctx context.Context, kapNr int, kapTitel, rawText string) (*ChapterResult, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	text := segmenter.NormalizeText(rawText)
	segments, err := p.opts.Segmenter.Segment(kapNr, kapTitel, text)
	if err != nil {
		return nil, err
	}
	report := segmenter.Validate(text, segments, p.opts.Limits)
	if !report.OK() {
		return nil, fmt.Errorf("segment validation of chapter %d failed: %s", kapNr, firstIssue(report.Errors))
	}

	result := &ChapterResult{Segments: segments, Report: report}

	if p.opts.Review && p.opts.Answerer != nil {
		review, err := p.opts.Answerer.ReviewSegments(ctx, kapNr, kapTitel, text, segments)
		if err != nil {
			return nil, fmt.Errorf("segment review of chapter %d failed: %w", kapNr, err)
		}
		result.Review = review
	}

	if p.opts.SegmentDir != "" {
		path := filepath.Join(p.opts.SegmentDir, segfile.ChapterBasename(kapNr, kapTitel)+".jsonl")
		if err := segfile.WriteJSONL(path, segments); err != nil {
			return nil, fmt.Errorf("write segment file: %w", err)
		}
		result.SegmentFile = path
	}

	entries, err := p.opts.Indexer.IndexChapter(ctx, segments)
	if err != nil {
		return nil, err
	}

	index, err := p.loadOrFresh(len(entries[0].Vector))
	if err != nil {
		return nil, err
	}
	if err := p.guardDimension(index, entries); err != nil {
		return nil, err
	}
	index.ReplaceChapter(kapNr, entries)

	if err := p.saveAndPublish(ctx, index); err != nil {
		return nil, err
	}
	result.IndexSize = index.Len()

	if p.opts.Summarizer != nil {
		if summary, err := p.opts.Summarizer.Summarize(text, 5); err == nil {
			result.Summary = summary
		}
	}
	return result, nil
}

// Build creates a fresh index from a directory of chapter segment files.
// It returns the number of indexed segments.
func (p *Pipeline) Build(ctx context.Context, dir string) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	files, err := segfile.ListChapterFiles(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .json/.jsonl segment files in %s", dir)
	}

	index := domain.NewIndex(p.opts.Embedder.Name(), p.opts.Embedder.Dimension())
	for _, f := range files {
		segments, err := segfile.Read(f)
		if err != nil {
			return 0, err
		}
		entries, err := p.opts.Indexer.IndexChapter(ctx, segments)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", f, err)
		}
		if index.Dimension == 0 {
			index.Dimension = len(entries[0].Vector)
		}
		if err := p.guardDimension(index, entries); err != nil {
			return 0, fmt.Errorf("%s: %w", f, err)
		}
		index.ReplaceChapter(segments[0].KapNr, entries)
	}

	if err := p.saveAndPublish(ctx, index); err != nil {
		return 0, err
	}
	return index.Len(), nil
}

// Query embeds the query text and returns the top-k segments. k <= 0 means
// the configured default.
func (p *Pipeline) Query(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = p.opts.DefaultK
	}
	index, err := p.currentIndex()
	if err != nil {
		return nil, err
	}
	return p.opts.Engine.Query(ctx, index, text, k)
}

// Ask retrieves the top-k segments and composes an answer grounded in them.
func (p *Pipeline) Ask(ctx context.Context, question string, k int) (string, []domain.SearchResult, error) {
	if p.opts.Answerer == nil {
		return "", nil, fmt.Errorf("no answer model configured")
	}
	results, err := p.Query(ctx, question, k)
	if err != nil {
		return "", nil, err
	}
	text, err := p.opts.Answerer.Answer(ctx, question, results)
	if err != nil {
		return "", nil, err
	}
	return text, results, nil
}

// IndexSize returns the entry count of the current snapshot, zero when no
// index has been saved yet.
func (p *Pipeline) IndexSize() int {
	index, err := p.currentIndex()
	if err != nil {
		return 0
	}
	return index.Len()
}

// currentIndex returns the query snapshot, loading it from the store on
// first use.
func (p *Pipeline) currentIndex() (*domain.Index, error) {
	p.snapMu.RLock()
	snap := p.snapshot
	p.snapMu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	index, err := p.opts.Store.Load()
	if err != nil {
		if store.IsNotExist(err) {
			return nil, domain.ErrEmptyIndex
		}
		return nil, err
	}
	p.snapMu.Lock()
	p.snapshot = index
	p.snapMu.Unlock()
	return index, nil
}

// loadOrFresh loads the persisted index for incremental addition, or starts
// a fresh one when none has been saved yet. An index built with a different
// embedding model is rejected; equal dimensions alone do not make vectors
// comparable.
func (p *Pipeline) loadOrFresh(dimension int) (*domain.Index, error) {
	index, err := p.opts.Store.Load()
	if err != nil {
		if store.IsNotExist(err) {
			return domain.NewIndex(p.opts.Embedder.Name(), dimension), nil
		}
		return nil, err
	}
	if index.Model != p.opts.Embedder.Name() {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("index was built with model %s, configured embedder is %s (rebuild the index to switch models)",
				index.Model, p.opts.Embedder.Name()),
		}
	}
	return index, nil
}

func (p *Pipeline) guardDimension(index *domain.Index, entries []domain.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != index.Dimension {
			return &domain.ValidationError{
				Reason: fmt.Sprintf("entry %s has dimension %d, index has %d (use the same embedding model everywhere)",
					e.SegmentID, len(e.Vector), index.Dimension),
			}
		}
	}
	return nil
}

// saveAndPublish persists the index, replaces the query snapshot and pushes
// the mirror. Mirror failures do not fail the operation; the file store is
// authoritative.
func (p *Pipeline) saveAndPublish(ctx context.Context, index *domain.Index) error {
	if err := p.opts.Store.Save(index); err != nil {
		return err
	}
	p.snapMu.Lock()
	p.snapshot = index
	p.snapMu.Unlock()
	if p.opts.Mirror != nil {
		// the file store is authoritative; mirror errors are not fatal
		_ = p.opts.Mirror.Push(ctx, index)
	}
	return nil
}

func firstIssue(issues []segmenter.Issue) string {
	if len(issues) == 0 {
		return "unknown issue"
	}
	is := issues[0]
	if is.SegID != "" {
		return fmt.Sprintf("[%s] %s: %s", is.SegID, is.Type, is.Message)
	}
	return fmt.Sprintf("%s: %s", is.Type, is.Message)
}
