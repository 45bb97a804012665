package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyIndex is returned when a query runs against an index with zero
// entries.
var ErrEmptyIndex = errors.New("index has no entries")

// SegmentationError reports that no valid sentence-aligned split satisfies
// the size constraints. It is never retried.
type SegmentationError struct {
	KapNr  int
	Span   string // offending text span, truncated for display
	Reason string
}

func (e *SegmentationError) Error() string {
	if e.Span == "" {
		return fmt.Sprintf("segmentation of chapter %d failed: %s", e.KapNr, e.Reason)
	}
	return fmt.Sprintf("segmentation of chapter %d failed: %s: %q", e.KapNr, e.Reason, e.Span)
}

// ValidationError rejects malformed input before any computation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// EmbeddingCallError wraps a failure of the embedding capability after the
// retry budget is exhausted.
type EmbeddingCallError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingCallError) Error() string {
	return fmt.Sprintf("embedding call failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *EmbeddingCallError) Unwrap() error { return e.Err }

// IndexLoadError reports a missing, truncated or version-incompatible
// persisted index. There is no auto-repair.
type IndexLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IndexLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load index %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load index %s: %s", e.Path, e.Reason)
}

func (e *IndexLoadError) Unwrap() error { return e.Err }
