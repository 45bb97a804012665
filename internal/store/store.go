// Package store persists the vector index as a versioned JSON container:
// a metadata array aligned 1:1 with a vector array plus a version tag.
// Writes go to a temp file followed by an atomic rename, so a crash
// mid-write never corrupts the previously saved index.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"segsearch/internal/domain"
)

// FileStore saves and loads the index at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given index file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the index file location.
func (s *FileStore) Path() string { return s.path }

type fileMeta struct {
	SegmentID string `json:"segment_id"`
	KapNr     int    `json:"kap_nr"`
	KapTitel  string `json:"kap_titel"`
	SegNr     int    `json:"seg_nr"`
	WordCount int    `json:"word_count"`
	Text      string `json:"text"`
}

type fileIndex struct {
	Version   int         `json:"version"`
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	Metadata  []fileMeta  `json:"metadata"`
	Vectors   [][]float64 `json:"vectors"`
}

// Save writes the full index via write-to-temp-then-atomic-replace.
func (s *FileStore) Save(index *domain.Index) error {
	out := fileIndex{
		Version:   index.Version,
		Model:     index.Model,
		Dimension: index.Dimension,
		Metadata:  make([]fileMeta, 0, len(index.Entries)),
		Vectors:   make([][]float64, 0, len(index.Entries)),
	}
	for _, e := range index.Entries {
		out.Metadata = append(out.Metadata, fileMeta{
			SegmentID: e.SegmentID,
			KapNr:     e.KapNr,
			KapTitel:  e.KapTitel,
			SegNr:     e.SegNr,
			WordCount: e.WordCount,
			Text:      e.Text,
		})
		out.Vectors = append(out.Vectors, e.Vector)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load returns the last successfully saved index. A missing, structurally
// invalid or version-incompatible file yields an IndexLoadError.
func (s *FileStore) Load() (*domain.Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &domain.IndexLoadError{Path: s.path, Reason: "cannot read index file", Err: err}
	}
	var in fileIndex
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, &domain.IndexLoadError{Path: s.path, Reason: "index file is structurally invalid", Err: err}
	}
	if in.Version != domain.IndexVersion {
		return nil, &domain.IndexLoadError{
			Path:   s.path,
			Reason: fmt.Sprintf("unsupported index version %d (reader supports %d)", in.Version, domain.IndexVersion),
		}
	}
	if len(in.Metadata) != len(in.Vectors) {
		return nil, &domain.IndexLoadError{
			Path:   s.path,
			Reason: fmt.Sprintf("vector count %d does not match metadata count %d", len(in.Vectors), len(in.Metadata)),
		}
	}
	index := &domain.Index{
		Version:   in.Version,
		Model:     in.Model,
		Dimension: in.Dimension,
		Entries:   make([]domain.IndexEntry, 0, len(in.Metadata)),
	}
	for i, m := range in.Metadata {
		if len(in.Vectors[i]) != in.Dimension {
			return nil, &domain.IndexLoadError{
				Path:   s.path,
				Reason: fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(in.Vectors[i]), in.Dimension),
			}
		}
		index.Entries = append(index.Entries, domain.IndexEntry{
			SegmentID: m.SegmentID,
			KapNr:     m.KapNr,
			KapTitel:  m.KapTitel,
			SegNr:     m.SegNr,
			WordCount: m.WordCount,
			Text:      m.Text,
			Vector:    in.Vectors[i],
		})
	}
	return index, nil
}

// IsNotExist reports whether err means the index file has not been created
// yet, which callers treat as an empty corpus rather than corruption.
func IsNotExist(err error) bool {
	var loadErr *domain.IndexLoadError
	return errors.As(err, &loadErr) && errors.Is(loadErr.Err, fs.ErrNotExist)
}
